package labs

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *BloodLabPanel) error
	// LatestForPatient returns the newest panel by creation time, or
	// ErrNotFound when the patient has none.
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (*BloodLabPanel, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*BloodLabPanel, error)
}
