package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/platform/auth"
)

var (
	ErrNotFound         = errors.New("patient not found")
	ErrFullNameRequired = errors.New("full_name is required")

	// ErrScopeDenied is returned for both "patient in another organization"
	// and "patient does not exist" during scope checks. Keeping the two cases
	// indistinguishable stops unauthorized callers from probing which patient
	// ids exist.
	ErrScopeDenied = errors.New("access to patient denied")
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

// Authorize loads the patient and verifies the actor may touch it. Admins see
// everything; other roles must share the patient's organization. Both a
// missing patient and an organization mismatch yield ErrScopeDenied.
func (s *Service) Authorize(ctx context.Context, actor auth.Actor, patientID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) && !actor.IsAdmin() {
			return nil, ErrScopeDenied
		}
		return nil, err
	}
	if actor.IsAdmin() {
		return p, nil
	}
	if p.OrganizationID == nil || actor.OrganizationID == nil || *p.OrganizationID != *actor.OrganizationID {
		return nil, ErrScopeDenied
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, p *Patient) error {
	if p.FullName == "" {
		return ErrFullNameRequired
	}
	if p.Snils != nil && *p.Snils != "" {
		norm := NormalizeSnils(*p.Snils)
		if err := ValidateSnils(norm); err != nil {
			return err
		}
		p.Snils = &norm
	}
	if p.Eye != nil && *p.Eye != "" {
		if err := ValidateEye(*p.Eye); err != nil {
			return err
		}
	}
	if p.Status == "" {
		p.Status = StatusNew
	}
	if !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	// Non-admins can only create patients inside their own organization.
	if !actor.IsAdmin() {
		p.OrganizationID = actor.OrganizationID
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		p.CreatedBy = &id
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Patient, error) {
	return s.Authorize(ctx, actor, id)
}

// UpdateFields applies a partial update to the demographic fields. Status is
// never writable through this path; it belongs to the state machine.
type UpdateFields struct {
	FullName      *string    `json:"full_name,omitempty"`
	BirthDate     *time.Time `json:"birth_date,omitempty"`
	Snils         *string    `json:"snils,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Diagnosis     *string    `json:"diagnosis,omitempty"`
	OperationType *string    `json:"operation_type,omitempty"`
	Eye           *string    `json:"eye,omitempty"`
	SurgeryDate   *time.Time `json:"surgery_date,omitempty"`
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, f UpdateFields) (*Patient, error) {
	p, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if f.FullName != nil {
		if *f.FullName == "" {
			return nil, ErrFullNameRequired
		}
		p.FullName = *f.FullName
	}
	if f.BirthDate != nil {
		p.BirthDate = f.BirthDate
	}
	if f.Snils != nil {
		norm := NormalizeSnils(*f.Snils)
		if err := ValidateSnils(norm); err != nil {
			return nil, err
		}
		p.Snils = &norm
	}
	if f.Phone != nil {
		p.Phone = f.Phone
	}
	if f.Diagnosis != nil {
		p.Diagnosis = f.Diagnosis
	}
	if f.OperationType != nil {
		p.OperationType = f.OperationType
	}
	if f.Eye != nil {
		if err := ValidateEye(*f.Eye); err != nil {
			return nil, err
		}
		p.Eye = f.Eye
	}
	if f.SurgeryDate != nil {
		p.SurgeryDate = f.SurgeryDate
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply runs an explicit state-machine action against the patient. The
// comment is stored for surgeon_request_changes so staff can see what to fix.
func (s *Service) Apply(ctx context.Context, actor auth.Actor, id uuid.UUID, action Action, comment *string) (*Patient, error) {
	p, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(p.Status, action)
	if err != nil {
		return nil, err
	}
	p.Status = next
	if action == ActionRequestChanges {
		p.ReviewComment = comment
	}
	if action == ActionApprove {
		p.ReviewComment = nil
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RecomputeStatus runs the checklist-derived status update. It never fails on
// an impossible transition; it simply leaves the status alone.
func (s *Service) RecomputeStatus(ctx context.Context, id uuid.UUID, doneCount, totalCount int) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	next := NextFromChecklist(p.Status, doneCount, totalCount)
	if next == p.Status {
		return nil
	}
	return s.patients.UpdateStatus(ctx, id, next)
}

func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter) ([]*Patient, int, error) {
	if !actor.IsAdmin() {
		f.OrganizationID = actor.OrganizationID
		if f.OrganizationID == nil {
			return nil, 0, nil
		}
	}
	return s.patients.List(ctx, f)
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if _, err := s.Authorize(ctx, actor, id); err != nil {
		return err
	}
	return s.patients.Delete(ctx, id)
}

// Dashboard returns per-status patient counts, scoped to the actor's
// organization unless they are an admin.
func (s *Service) Dashboard(ctx context.Context, actor auth.Actor) (*Summary, error) {
	orgID := actor.OrganizationID
	if actor.IsAdmin() {
		orgID = nil
	}
	return s.patients.CountByStatus(ctx, orgID)
}
