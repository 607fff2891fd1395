package patient

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows List to one organization and/or status. Nil fields mean
// no constraint.
type ListFilter struct {
	OrganizationID *uuid.UUID
	Status         *Status
	Search         string
	Limit          int
	Offset         int
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*Patient, int, error)
	CountByStatus(ctx context.Context, orgID *uuid.UUID) (*Summary, error)
}
