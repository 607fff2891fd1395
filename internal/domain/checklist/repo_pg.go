package checklist

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

// NewRepoPG returns a store backing both the template and instance
// repositories.
func NewRepoPG(pool *pgxpool.Pool) *repoPG { return &repoPG{pool: pool} }

var (
	_ TemplateRepository = (*repoPG)(nil)
	_ InstanceRepository = (*repoPG)(nil)
)

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, title, operation_type, version, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Title, &t.OperationType, &t.Version, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	return &t, err
}

func (r *repoPG) CreateTemplate(ctx context.Context, t *Template) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO checklist_template (id, title, operation_type, version, is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Title, t.OperationType, t.Version, t.IsActive)
	return err
}

func (r *repoPG) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM checklist_template WHERE id = $1`, id))
}

func (r *repoPG) ActiveForOperation(ctx context.Context, operationType string) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx, `
		SELECT `+templateCols+` FROM checklist_template
		WHERE operation_type = $1 AND is_active
		ORDER BY version DESC LIMIT 1`, operationType))
}

func (r *repoPG) ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM checklist_template`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+templateCols+` FROM checklist_template
		ORDER BY operation_type, version DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateTemplate(ctx context.Context, t *Template) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE checklist_template SET title=$2, operation_type=$3, version=$4, is_active=$5,
			updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.OperationType, t.Version, t.IsActive)
	return err
}

const itemTemplateCols = `id, template_id, title, description, order_index, requires_value,
	requires_file, evidence_kind, value_hint, created_at, updated_at`

func scanItemTemplate(row pgx.Row) (*ItemTemplate, error) {
	var it ItemTemplate
	err := row.Scan(&it.ID, &it.TemplateID, &it.Title, &it.Description, &it.OrderIndex,
		&it.RequiresValue, &it.RequiresFile, &it.EvidenceKind, &it.ValueHint,
		&it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	return &it, err
}

func (r *repoPG) CreateItemTemplate(ctx context.Context, it *ItemTemplate) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO checklist_item_template
			(id, template_id, title, description, order_index, requires_value, requires_file,
			 evidence_kind, value_hint)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		it.ID, it.TemplateID, it.Title, it.Description, it.OrderIndex,
		it.RequiresValue, it.RequiresFile, it.EvidenceKind, it.ValueHint)
	return err
}

func (r *repoPG) ListItemTemplates(ctx context.Context, templateID uuid.UUID) ([]ItemTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+itemTemplateCols+` FROM checklist_item_template
		WHERE template_id = $1 ORDER BY order_index, created_at`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ItemTemplate
	for rows.Next() {
		it, err := scanItemTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *repoPG) GetItemTemplate(ctx context.Context, id uuid.UUID) (*ItemTemplate, error) {
	return scanItemTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemTemplateCols+` FROM checklist_item_template WHERE id = $1`, id))
}

const instanceCols = `id, patient_id, template_id, status, created_at, updated_at`

func scanInstance(row pgx.Row) (*Instance, error) {
	var in Instance
	err := row.Scan(&in.ID, &in.PatientID, &in.TemplateID, &in.Status, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInstanceNotFound
	}
	return &in, err
}

func (r *repoPG) CreateInstance(ctx context.Context, inst *Instance) error {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_checklist (id, patient_id, template_id, status)
		VALUES ($1,$2,$3,$4)`,
		inst.ID, inst.PatientID, inst.TemplateID, inst.Status)
	return err
}

func (r *repoPG) CreateItems(ctx context.Context, items []Item) error {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO patient_checklist_item
				(id, patient_checklist_id, item_template_id, done, value_text, note)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			items[i].ID, items[i].InstanceID, items[i].ItemTemplateID,
			items[i].Done, items[i].Value, items[i].Note)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetInstance(ctx context.Context, id uuid.UUID) (*Instance, error) {
	return scanInstance(r.conn(ctx).QueryRow(ctx,
		`SELECT `+instanceCols+` FROM patient_checklist WHERE id = $1`, id))
}

func (r *repoPG) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Instance, error) {
	return scanInstance(r.conn(ctx).QueryRow(ctx, `
		SELECT `+instanceCols+` FROM patient_checklist
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID))
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Instance, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+instanceCols+` FROM patient_checklist
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Instance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateInstanceStatus(ctx context.Context, id uuid.UUID, status InstanceStatus) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_checklist SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

const itemCols = `id, patient_checklist_id, item_template_id, done, done_at, value_text, note,
	created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.InstanceID, &it.ItemTemplateID, &it.Done, &it.DoneAt,
		&it.Value, &it.Note, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	return &it, err
}

func (r *repoPG) GetItem(ctx context.Context, instanceID, itemID uuid.UUID) (*Item, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `
		SELECT `+itemCols+` FROM patient_checklist_item
		WHERE id = $1 AND patient_checklist_id = $2`, itemID, instanceID))
}

func (r *repoPG) ListItems(ctx context.Context, instanceID uuid.UUID) ([]Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+itemCols+` FROM patient_checklist_item
		WHERE patient_checklist_id = $1 ORDER BY created_at`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateItem(ctx context.Context, it *Item) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_checklist_item
		SET done=$2, done_at=$3, value_text=$4, note=$5, updated_at=NOW()
		WHERE id = $1`,
		it.ID, it.Done, it.DoneAt, it.Value, it.Note)
	return err
}
