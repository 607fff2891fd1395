package files

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
)

type mockAssets struct {
	assets map[uuid.UUID]*FileAsset
}

func (m *mockAssets) Create(_ context.Context, f *FileAsset) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	cp := *f
	m.assets[f.ID] = &cp
	return nil
}

func (m *mockAssets) GetByID(_ context.Context, id uuid.UUID) (*FileAsset, error) {
	f, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockAssets) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*FileAsset, error) {
	var out []*FileAsset
	for _, f := range m.assets {
		if f.PatientID == patientID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockAssets) ExistsForItem(_ context.Context, itemID uuid.UUID) (bool, error) {
	for _, f := range m.assets {
		if f.ChecklistItemID != nil && *f.ChecklistItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

type mockGuard struct {
	allowed map[uuid.UUID]bool
}

func (m *mockGuard) ItemBelongsToLatest(_ context.Context, _, itemID uuid.UUID) (bool, error) {
	return m.allowed[itemID], nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error { return nil }
func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
func (m *mockPatientRepo) Update(_ context.Context, _ *patient.Patient) error { return nil }
func (m *mockPatientRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ patient.Status) error {
	return nil
}
func (m *mockPatientRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }
func (m *mockPatientRepo) List(_ context.Context, _ patient.ListFilter) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}
func (m *mockPatientRepo) CountByStatus(_ context.Context, _ *uuid.UUID) (*patient.Summary, error) {
	return nil, nil
}

func setup(t *testing.T) (*Service, *mockAssets, *mockGuard, auth.Actor, uuid.UUID) {
	t.Helper()
	assets := &mockAssets{assets: make(map[uuid.UUID]*FileAsset)}
	guard := &mockGuard{allowed: make(map[uuid.UUID]bool)}
	repo := &mockPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
	orgID := uuid.New()
	pid := uuid.New()
	repo.patients[pid] = &patient.Patient{ID: pid, OrganizationID: &orgID, FullName: "Test", Status: patient.StatusNew}
	actor := auth.Actor{ID: uuid.New(), Role: auth.RoleFeldsher, OrganizationID: &orgID}
	svc := NewService(assets, guard, patient.NewService(repo), t.TempDir())
	return svc, assets, guard, actor, pid
}

func TestUploadAndOpen(t *testing.T) {
	svc, assets, _, actor, pid := setup(t)
	ctx := context.Background()

	meta := &FileAsset{OriginalName: "ecg.pdf", MimeType: "application/pdf"}
	out, err := svc.Upload(ctx, actor, pid, meta, strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if out.SizeBytes != int64(len("pdf-bytes")) {
		t.Fatalf("size not recorded: %d", out.SizeBytes)
	}
	if out.StorageKey == "" || out.StorageKey == "ecg.pdf" {
		t.Fatalf("storage key must be randomized, got %q", out.StorageKey)
	}
	if _, ok := assets.assets[out.ID]; !ok {
		t.Fatal("metadata row not stored")
	}

	got, path, err := svc.Open(ctx, actor, out.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.OriginalName != "ecg.pdf" {
		t.Fatalf("got %q", got.OriginalName)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "pdf-bytes" {
		t.Fatalf("disk content mismatch: %q %v", data, err)
	}
}

func TestUploadItemLinkGuard(t *testing.T) {
	svc, _, guard, actor, pid := setup(t)
	ctx := context.Background()
	itemID := uuid.New()

	meta := &FileAsset{OriginalName: "scan.jpg", ChecklistItemID: &itemID}
	if _, err := svc.Upload(ctx, actor, pid, meta, strings.NewReader("x")); !errors.Is(err, ErrBadItemLink) {
		t.Fatalf("want ErrBadItemLink, got %v", err)
	}

	guard.allowed[itemID] = true
	if _, err := svc.Upload(ctx, actor, pid, meta, strings.NewReader("x")); err != nil {
		t.Fatalf("upload with valid link: %v", err)
	}
}

func TestUploadScopeDenied(t *testing.T) {
	svc, _, _, _, pid := setup(t)
	otherOrg := uuid.New()
	outsider := auth.Actor{ID: uuid.New(), Role: auth.RoleSurgeon, OrganizationID: &otherOrg}
	_, err := svc.Upload(context.Background(), outsider, pid, &FileAsset{OriginalName: "x"}, strings.NewReader("x"))
	if !errors.Is(err, patient.ErrScopeDenied) {
		t.Fatalf("want ErrScopeDenied, got %v", err)
	}
}
