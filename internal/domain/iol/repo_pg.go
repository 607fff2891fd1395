package iol

import (
	"context"

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

const calcCols = `id, patient_id, checklist_item_id, formula, k1, k2, acd, axial_length,
	a_constant, result_d, created_at`

func (r *repoPG) Create(ctx context.Context, c *Calculation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO iol_calculation
			(id, patient_id, checklist_item_id, formula, k1, k2, acd, axial_length,
			 a_constant, result_d)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.PatientID, c.ChecklistItemID, c.Formula, c.K1, c.K2, c.ACD,
		c.AxialLength, c.AConstant, c.ResultD)
	return err
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Calculation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+calcCols+` FROM iol_calculation
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Calculation
	for rows.Next() {
		var c Calculation
		if err := rows.Scan(&c.ID, &c.PatientID, &c.ChecklistItemID, &c.Formula, &c.K1, &c.K2,
			&c.ACD, &c.AxialLength, &c.AConstant, &c.ResultD, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
