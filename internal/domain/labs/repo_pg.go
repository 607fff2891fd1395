package labs

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

const panelCols = `id, patient_id, checklist_item_id, glucose_value, glucose_unit,
	hemoglobin_value, hemoglobin_unit, taken_at, created_at`

func scanPanel(row pgx.Row) (*BloodLabPanel, error) {
	var p BloodLabPanel
	err := row.Scan(&p.ID, &p.PatientID, &p.ChecklistItemID, &p.GlucoseValue, &p.GlucoseUnit,
		&p.HemoglobinValue, &p.HemoglobinUnit, &p.TakenAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *BloodLabPanel) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO blood_lab_panel
			(id, patient_id, checklist_item_id, glucose_value, glucose_unit,
			 hemoglobin_value, hemoglobin_unit, taken_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.PatientID, p.ChecklistItemID, p.GlucoseValue, p.GlucoseUnit,
		p.HemoglobinValue, p.HemoglobinUnit, p.TakenAt)
	return err
}

func (r *repoPG) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*BloodLabPanel, error) {
	return scanPanel(r.conn(ctx).QueryRow(ctx, `
		SELECT `+panelCols+` FROM blood_lab_panel
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID))
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*BloodLabPanel, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+panelCols+` FROM blood_lab_panel
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*BloodLabPanel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
