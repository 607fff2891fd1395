package iol

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Calculation) error
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Calculation, error)
}
