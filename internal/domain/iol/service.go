package iol

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
)

var (
	ErrAConstantRequired = errors.New("a_constant is required for SRKT")
	ErrHaigisUnderspec   = errors.New("either a_constant or haigis_a0 is required for Haigis")
	ErrUnknownFormula    = errors.New("unknown formula")
	ErrBadBiometry       = errors.New("biometry values out of range")
)

type Service struct {
	calcs    Repository
	patients *patient.Service
}

func NewService(calcs Repository, patients *patient.Service) *Service {
	return &Service{calcs: calcs, patients: patients}
}

// Calculate runs the selected formula on the mean keratometry and stores the
// result rounded to the 0.5 D lens step.
func (s *Service) Calculate(ctx context.Context, actor auth.Actor, patientID uuid.UUID, in Input) (*Calculation, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	if in.K1 <= 0 || in.K2 <= 0 || in.AxialLength <= 0 {
		return nil, ErrBadBiometry
	}
	k := (in.K1 + in.K2) / 2.0

	var power float64
	switch in.Formula {
	case FormulaSRKT:
		if in.AConstant == nil {
			return nil, ErrAConstantRequired
		}
		power = SRKTPower(in.AxialLength, k, *in.AConstant, in.TargetRefraction)
	case FormulaHaigis:
		if in.AConstant == nil && in.HaigisA0 == nil {
			return nil, ErrHaigisUnderspec
		}
		aConst := 118.0
		if in.AConstant != nil {
			aConst = *in.AConstant
		}
		power = HaigisPower(k, in.ACD, in.AxialLength, aConst, in.TargetRefraction,
			in.HaigisA0, in.HaigisA1, in.HaigisA2)
	default:
		return nil, ErrUnknownFormula
	}

	calc := &Calculation{
		PatientID:       patientID,
		ChecklistItemID: in.ChecklistItemID,
		Formula:         in.Formula,
		K1:              in.K1,
		K2:              in.K2,
		ACD:             in.ACD,
		AxialLength:     in.AxialLength,
		AConstant:       in.AConstant,
		ResultD:         RoundToStep(power, 0.5),
	}
	if err := s.calcs.Create(ctx, calc); err != nil {
		return nil, err
	}
	return calc, nil
}

// History lists stored calculations for the patient, newest first.
func (s *Service) History(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*Calculation, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	return s.calcs.ListForPatient(ctx, patientID)
}
