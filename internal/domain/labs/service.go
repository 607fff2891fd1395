package labs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/domain/checklist"
	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
)

var (
	ErrNotFound    = errors.New("blood labs not found")
	ErrBadItemLink = errors.New("checklist item does not belong to the patient's current checklist")
	ErrBadValue    = errors.New("lab value out of range")
)

// ChecklistGuard verifies an item tag points into the patient's newest
// checklist. Satisfied by the checklist service.
type ChecklistGuard interface {
	ItemBelongsToLatest(ctx context.Context, patientID, itemID uuid.UUID) (bool, error)
}

type Service struct {
	panels   Repository
	guard    ChecklistGuard
	patients *patient.Service
}

func NewService(panels Repository, guard ChecklistGuard, patients *patient.Service) *Service {
	return &Service{panels: panels, guard: guard, patients: patients}
}

// Save records a panel for the patient. Input ranges here are sanity caps on
// data entry; the stricter clinical plausibility window is enforced by the
// checklist precondition checker when the evidence is consumed.
func (s *Service) Save(ctx context.Context, actor auth.Actor, patientID uuid.UUID, p *BloodLabPanel) error {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return err
	}
	// Caps are inclusive so any value inside the checker's plausible window
	// can be stored.
	if p.GlucoseValue <= 0 || p.GlucoseValue > 50 {
		return fmt.Errorf("%w: glucose %v", ErrBadValue, p.GlucoseValue)
	}
	if p.HemoglobinValue <= 0 || p.HemoglobinValue > 250 {
		return fmt.Errorf("%w: hemoglobin %v", ErrBadValue, p.HemoglobinValue)
	}
	if p.GlucoseUnit == "" {
		p.GlucoseUnit = DefaultGlucoseUnit
	}
	if p.HemoglobinUnit == "" {
		p.HemoglobinUnit = DefaultHemoglobinUnit
	}
	if p.ChecklistItemID != nil {
		ok, err := s.guard.ItemBelongsToLatest(ctx, patientID, *p.ChecklistItemID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBadItemLink
		}
	}
	p.PatientID = patientID
	return s.panels.Create(ctx, p)
}

// Latest returns the newest panel for the patient.
func (s *Service) Latest(ctx context.Context, actor auth.Actor, patientID uuid.UUID) (*BloodLabPanel, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	return s.panels.LatestForPatient(ctx, patientID)
}

// History lists all panels for the patient, newest first.
func (s *Service) History(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*BloodLabPanel, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	return s.panels.ListForPatient(ctx, patientID)
}

// EvidenceSource adapts the panel store to the checklist precondition
// checker's lab interface.
type EvidenceSource struct {
	panels Repository
}

func NewEvidenceSource(panels Repository) *EvidenceSource {
	return &EvidenceSource{panels: panels}
}

func (e *EvidenceSource) LatestMeasurements(ctx context.Context, patientID uuid.UUID) ([]checklist.Measurement, bool, error) {
	p, err := e.panels.LatestForPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []checklist.Measurement{
		{Name: "glucose", Value: p.GlucoseValue, Unit: p.GlucoseUnit},
		{Name: "hemoglobin", Value: p.HemoglobinValue, Unit: p.HemoglobinUnit},
	}, true, nil
}
