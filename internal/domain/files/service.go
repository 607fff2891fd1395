package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrBadItemLink = errors.New("checklist item does not belong to the patient's current checklist")
)

// ChecklistGuard verifies an item tag points into the patient's newest
// checklist. Satisfied by the checklist service.
type ChecklistGuard interface {
	ItemBelongsToLatest(ctx context.Context, patientID, itemID uuid.UUID) (bool, error)
}

// Service stores uploaded documents on local disk and their metadata rows in
// the database.
type Service struct {
	assets    Repository
	guard     ChecklistGuard
	patients  *patient.Service
	uploadDir string
}

func NewService(assets Repository, guard ChecklistGuard, patients *patient.Service, uploadDir string) *Service {
	return &Service{assets: assets, guard: guard, patients: patients, uploadDir: uploadDir}
}

// Upload writes the content to disk under a random key and records the asset.
// An item tag must point into the patient's newest checklist.
func (s *Service) Upload(ctx context.Context, actor auth.Actor, patientID uuid.UUID, meta *FileAsset, content io.Reader) (*FileAsset, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	if meta.ChecklistItemID != nil {
		ok, err := s.guard.ItemBelongsToLatest(ctx, patientID, *meta.ChecklistItemID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrBadItemLink
		}
	}
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	ext := filepath.Ext(meta.OriginalName)
	key := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	path := filepath.Join(s.uploadDir, key)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(dst, content)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	meta.PatientID = patientID
	meta.StorageKey = key
	meta.SizeBytes = n
	if meta.MimeType == "" {
		meta.MimeType = "application/octet-stream"
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		meta.UploadedBy = &id
	}
	if err := s.assets.Create(ctx, meta); err != nil {
		os.Remove(path)
		return nil, err
	}
	return meta, nil
}

// List returns the patient's assets, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*FileAsset, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	return s.assets.ListForPatient(ctx, patientID)
}

// Open resolves a download: metadata plus the on-disk path, after the same
// scope check as any other patient read.
func (s *Service) Open(ctx context.Context, actor auth.Actor, fileID uuid.UUID) (*FileAsset, string, error) {
	f, err := s.assets.GetByID(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	if _, err := s.patients.Authorize(ctx, actor, f.PatientID); err != nil {
		return nil, "", err
	}
	path := filepath.Join(s.uploadDir, f.StorageKey)
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("%w: missing on disk", ErrNotFound)
	}
	return f, path, nil
}
