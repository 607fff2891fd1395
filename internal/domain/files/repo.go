package files

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *FileAsset) error
	GetByID(ctx context.Context, id uuid.UUID) (*FileAsset, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*FileAsset, error)
	// ExistsForItem reports whether any asset references the checklist item.
	ExistsForItem(ctx context.Context, itemID uuid.UUID) (bool, error)
}
