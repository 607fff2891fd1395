package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization maps to the organization table. Represents a clinic, rural
// health post, or district that owns patients and employs staff.
type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	City      *string   `db:"city" json:"city,omitempty"`
	Region    *string   `db:"region" json:"region,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
