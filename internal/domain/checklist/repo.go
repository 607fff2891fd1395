package checklist

import (
	"context"

	"github.com/google/uuid"
)

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	// ActiveForOperation resolves the active template with the highest
	// version for an operation type.
	ActiveForOperation(ctx context.Context, operationType string) (*Template, error)
	ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error)
	UpdateTemplate(ctx context.Context, t *Template) error
	CreateItemTemplate(ctx context.Context, it *ItemTemplate) error
	ListItemTemplates(ctx context.Context, templateID uuid.UUID) ([]ItemTemplate, error)
	GetItemTemplate(ctx context.Context, id uuid.UUID) (*ItemTemplate, error)
}

type InstanceRepository interface {
	CreateInstance(ctx context.Context, inst *Instance) error
	// CreateItems inserts all item instances of a fresh checklist in one shot.
	CreateItems(ctx context.Context, items []Item) error
	GetInstance(ctx context.Context, id uuid.UUID) (*Instance, error)
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Instance, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Instance, error)
	UpdateInstanceStatus(ctx context.Context, id uuid.UUID, status InstanceStatus) error
	GetItem(ctx context.Context, instanceID, itemID uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, instanceID uuid.UUID) ([]Item, error)
	UpdateItem(ctx context.Context, it *Item) error
}
