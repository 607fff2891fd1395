package labs

import (
	"time"

	"github.com/google/uuid"
)

// BloodLabPanel is one recorded pre-surgical blood panel. A panel may be
// tagged to the checklist item it satisfies; the tag is optional because labs
// can arrive before the checklist is generated.
type BloodLabPanel struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ChecklistItemID *uuid.UUID `db:"checklist_item_id" json:"checklist_item_id,omitempty"`

	GlucoseValue float64 `db:"glucose_value" json:"glucose_value"`
	GlucoseUnit  string  `db:"glucose_unit" json:"glucose_unit"`

	HemoglobinValue float64 `db:"hemoglobin_value" json:"hemoglobin_value"`
	HemoglobinUnit  string  `db:"hemoglobin_unit" json:"hemoglobin_unit"`

	TakenAt   *time.Time `db:"taken_at" json:"taken_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

const (
	DefaultGlucoseUnit    = "mmol/L"
	DefaultHemoglobinUnit = "g/L"
)
