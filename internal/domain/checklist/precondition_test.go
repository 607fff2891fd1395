package checklist

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubFiles struct {
	byItem map[uuid.UUID]bool
}

func (s *stubFiles) ExistsForItem(_ context.Context, itemID uuid.UUID) (bool, error) {
	return s.byItem[itemID], nil
}

type stubLabs struct {
	byPatient map[uuid.UUID][]Measurement
}

func (s *stubLabs) LatestMeasurements(_ context.Context, patientID uuid.UUID) ([]Measurement, bool, error) {
	ms, ok := s.byPatient[patientID]
	return ms, ok, nil
}

func newTestChecker() (*Checker, *stubFiles, *stubLabs) {
	files := &stubFiles{byItem: make(map[uuid.UUID]bool)}
	labs := &stubLabs{byPatient: make(map[uuid.UUID][]Measurement)}
	return NewChecker(files, labs), files, labs
}

func strptr(s string) *string { return &s }

func TestCheckerValueRequired(t *testing.T) {
	checker, _, _ := newTestChecker()
	tmpl := &ItemTemplate{RequiresValue: true}
	item := &Item{ID: uuid.New()}
	pid := uuid.New()

	if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); !errors.Is(err, ErrValueRequired) {
		t.Fatalf("want ErrValueRequired, got %v", err)
	}

	// Value arriving in the same patch satisfies the requirement.
	if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{Value: strptr("5.4")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A previously stored value counts too.
	item.Value = strptr("5.4")
	if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An explicit empty value in the patch wipes the stored one.
	if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{Value: strptr("")}); !errors.Is(err, ErrValueRequired) {
		t.Fatalf("want ErrValueRequired, got %v", err)
	}
}

func TestCheckerFileRequired(t *testing.T) {
	checker, files, _ := newTestChecker()
	tmpl := &ItemTemplate{RequiresFile: true}
	item := &Item{ID: uuid.New()}
	pid := uuid.New()

	if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); !errors.Is(err, ErrFileRequired) {
		t.Fatalf("want ErrFileRequired, got %v", err)
	}

	files.byItem[item.ID] = true
	if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); err != nil {
		t.Fatalf("unexpected error after file attach: %v", err)
	}
}

func TestCheckerBloodLabEvidence(t *testing.T) {
	checker, _, labs := newTestChecker()
	kind := EvidenceBloodLabs
	tmpl := &ItemTemplate{EvidenceKind: &kind}
	item := &Item{ID: uuid.New()}
	pid := uuid.New()

	t.Run("missing panel", func(t *testing.T) {
		if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); !errors.Is(err, ErrEvidenceMissing) {
			t.Fatalf("want ErrEvidenceMissing, got %v", err)
		}
	})

	t.Run("plausible panel passes", func(t *testing.T) {
		labs.byPatient[pid] = []Measurement{
			{Name: "glucose", Value: 5.6, Unit: "mmol/L"},
			{Name: "hemoglobin", Value: 132, Unit: "g/L"},
		}
		if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("implausible glucose fails", func(t *testing.T) {
		labs.byPatient[pid] = []Measurement{
			{Name: "glucose", Value: 56, Unit: "mmol/L"},
			{Name: "hemoglobin", Value: 132, Unit: "g/L"},
		}
		if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); !errors.Is(err, ErrEvidenceImplausible) {
			t.Fatalf("want ErrEvidenceImplausible, got %v", err)
		}
	})

	t.Run("implausible hemoglobin fails", func(t *testing.T) {
		labs.byPatient[pid] = []Measurement{
			{Name: "glucose", Value: 5.6, Unit: "mmol/L"},
			{Name: "hemoglobin", Value: 20, Unit: "g/L"},
		}
		if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); !errors.Is(err, ErrEvidenceImplausible) {
			t.Fatalf("want ErrEvidenceImplausible, got %v", err)
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		labs.byPatient[pid] = []Measurement{
			{Name: "glucose", Value: 40, Unit: "mmol/L"},
			{Name: "hemoglobin", Value: 30, Unit: "g/L"},
		}
		if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); err != nil {
			t.Fatalf("unexpected error at boundary: %v", err)
		}
	})

	t.Run("unknown unit passes through", func(t *testing.T) {
		labs.byPatient[pid] = []Measurement{
			{Name: "glucose", Value: 900, Unit: "mg/dL"},
		}
		if err := checker.CanComplete(context.Background(), tmpl, item, pid, ItemPatch{}); err != nil {
			t.Fatalf("unexpected error for undeclared unit: %v", err)
		}
	})
}
