package files

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/k1maruuu/eyes/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const assetCols = `id, patient_id, checklist_item_id, storage_key, original_name, mime_type,
	size_bytes, kind, description, uploaded_by, created_at, updated_at`

func scanAsset(row pgx.Row) (*FileAsset, error) {
	var f FileAsset
	err := row.Scan(&f.ID, &f.PatientID, &f.ChecklistItemID, &f.StorageKey, &f.OriginalName,
		&f.MimeType, &f.SizeBytes, &f.Kind, &f.Description, &f.UploadedBy,
		&f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &f, err
}

func (r *repoPG) Create(ctx context.Context, f *FileAsset) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO file_asset
			(id, patient_id, checklist_item_id, storage_key, original_name, mime_type,
			 size_bytes, kind, description, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		f.ID, f.PatientID, f.ChecklistItemID, f.StorageKey, f.OriginalName, f.MimeType,
		f.SizeBytes, f.Kind, f.Description, f.UploadedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*FileAsset, error) {
	return scanAsset(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assetCols+` FROM file_asset WHERE id = $1`, id))
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*FileAsset, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assetCols+` FROM file_asset
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*FileAsset
	for rows.Next() {
		f, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repoPG) ExistsForItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM file_asset WHERE checklist_item_id = $1)`, itemID).Scan(&exists)
	return exists, err
}
