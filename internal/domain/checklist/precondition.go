package checklist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValueRequired       = errors.New("a value must be attached before completion")
	ErrFileRequired        = errors.New("a file must be attached before completion")
	ErrEvidenceMissing     = errors.New("required evidence is missing")
	ErrEvidenceImplausible = errors.New("recorded evidence is outside plausible bounds")
)

// FileSource answers whether any stored file references a checklist item.
type FileSource interface {
	ExistsForItem(ctx context.Context, itemID uuid.UUID) (bool, error)
}

// Measurement is one recorded lab value in the panel's declared unit.
type Measurement struct {
	Name  string
	Value float64
	Unit  string
}

// LabSource returns the most recent lab panel for a patient, flattened to
// measurements. ok is false when the patient has no panel at all.
type LabSource interface {
	LatestMeasurements(ctx context.Context, patientID uuid.UUID) ([]Measurement, bool, error)
}

type bounds struct{ min, max float64 }

// plausibleBounds holds the clinically plausible range per measurement and
// unit. Values outside these are recording mistakes, not pathology.
var plausibleBounds = map[string]map[string]bounds{
	"glucose":    {"mmol/L": {0.5, 40}},
	"hemoglobin": {"g/L": {30, 250}},
}

// Checker validates completion preconditions for checklist items. It never
// mutates anything; all checks run only on the false to true done transition.
type Checker struct {
	files FileSource
	labs  LabSource
}

func NewChecker(files FileSource, labs LabSource) *Checker {
	return &Checker{files: files, labs: labs}
}

// CanComplete reports whether the item may be marked done given its template
// requirements, the proposed patch, and the stored state.
func (c *Checker) CanComplete(ctx context.Context, tmpl *ItemTemplate, item *Item, patientID uuid.UUID, patch ItemPatch) error {
	if tmpl.RequiresValue {
		has := item.Value != nil && *item.Value != ""
		if patch.Value != nil {
			has = *patch.Value != ""
		}
		if !has {
			return ErrValueRequired
		}
	}
	if tmpl.RequiresFile {
		ok, err := c.files.ExistsForItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrFileRequired
		}
	}
	if tmpl.EvidenceKind != nil {
		if err := c.checkEvidence(ctx, *tmpl.EvidenceKind, patientID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkEvidence(ctx context.Context, kind EvidenceKind, patientID uuid.UUID) error {
	switch kind {
	case EvidenceBloodLabs:
		ms, ok, err := c.labs.LatestMeasurements(ctx, patientID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no blood lab panel recorded", ErrEvidenceMissing)
		}
		for _, m := range ms {
			if !plausible(m) {
				return fmt.Errorf("%w: %s %v %s", ErrEvidenceImplausible, m.Name, m.Value, m.Unit)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unknown evidence kind %q", ErrEvidenceMissing, kind)
}

func plausible(m Measurement) bool {
	byUnit, ok := plausibleBounds[m.Name]
	if !ok {
		// Unknown measurements pass; the checker only owns the ranges it
		// declares.
		return true
	}
	b, ok := byUnit[m.Unit]
	if !ok {
		return true
	}
	return m.Value >= b.min && m.Value <= b.max
}
