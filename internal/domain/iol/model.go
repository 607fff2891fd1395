package iol

import (
	"time"

	"github.com/google/uuid"
)

// Formula selects the optical model used for the power calculation.
type Formula string

const (
	FormulaSRKT   Formula = "SRKT"
	FormulaHaigis Formula = "HAIGIS"
)

// Calculation stores one IOL power computation with the biometry inputs it
// was derived from, so the surgeon can audit what was measured.
type Calculation struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ChecklistItemID *uuid.UUID `db:"checklist_item_id" json:"checklist_item_id,omitempty"`

	Formula     Formula  `db:"formula" json:"formula"`
	K1          float64  `db:"k1" json:"k1"`
	K2          float64  `db:"k2" json:"k2"`
	ACD         float64  `db:"acd" json:"acd"`
	AxialLength float64  `db:"axial_length" json:"axial_length"`
	AConstant   *float64 `db:"a_constant" json:"a_constant,omitempty"`

	ResultD   float64   `db:"result_d" json:"result_d"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Input is one calculation request. Haigis regression coefficients default to
// the standard values when the surgeon has no personalized set.
type Input struct {
	Formula          Formula    `json:"formula"`
	K1               float64    `json:"k1"`
	K2               float64    `json:"k2"`
	ACD              float64    `json:"acd"`
	AxialLength      float64    `json:"axial_length"`
	AConstant        *float64   `json:"a_constant,omitempty"`
	TargetRefraction float64    `json:"target_refraction"`
	HaigisA0         *float64   `json:"haigis_a0,omitempty"`
	HaigisA1         float64    `json:"haigis_a1"`
	HaigisA2         float64    `json:"haigis_a2"`
	ChecklistItemID  *uuid.UUID `json:"checklist_item_id,omitempty"`
}
