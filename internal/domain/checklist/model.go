package checklist

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus tracks whether every item of an instance is done.
type InstanceStatus string

const (
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceCompleted  InstanceStatus = "COMPLETED"
)

// EvidenceKind names a domain evidence requirement beyond value/file flags.
type EvidenceKind string

const EvidenceBloodLabs EvidenceKind = "blood_labs"

// Template is a versioned definition of the preoperative steps for one
// operation type. Instances reference it by id only; editing a template never
// changes checklists already generated from it.
type Template struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	OperationType string         `db:"operation_type" json:"operation_type"`
	Version       int            `db:"version" json:"version"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
	Items         []ItemTemplate `db:"-" json:"items,omitempty"`
}

// ItemTemplate is one line of a template. The requires flags and evidence
// kind drive the completion precondition checks.
type ItemTemplate struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	TemplateID    uuid.UUID     `db:"template_id" json:"template_id"`
	Title         string        `db:"title" json:"title"`
	Description   *string       `db:"description" json:"description,omitempty"`
	OrderIndex    int           `db:"order_index" json:"order_index"`
	RequiresValue bool          `db:"requires_value" json:"requires_value"`
	RequiresFile  bool          `db:"requires_file" json:"requires_file"`
	EvidenceKind  *EvidenceKind `db:"evidence_kind" json:"evidence_kind,omitempty"`
	ValueHint     *string       `db:"value_hint" json:"value_hint,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Instance is a patient's point-in-time copy of a template. Latest instance
// wins; there is no supersession marker, generation simply stacks new
// instances and readers take the newest by creation time.
type Instance struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	PatientID  uuid.UUID      `db:"patient_id" json:"patient_id"`
	TemplateID uuid.UUID      `db:"template_id" json:"template_id"`
	Status     InstanceStatus `db:"status" json:"status"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
	Items      []Item         `db:"-" json:"items,omitempty"`
}

// Item is one checklist line's completion record. done_at is set exactly on
// the false to true transition and cleared on the way back.
type Item struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	InstanceID     uuid.UUID  `db:"patient_checklist_id" json:"instance_id"`
	ItemTemplateID uuid.UUID  `db:"item_template_id" json:"item_template_id"`
	Done           bool       `db:"done" json:"done"`
	DoneAt         *time.Time `db:"done_at" json:"done_at,omitempty"`
	Value          *string    `db:"value_text" json:"value,omitempty"`
	Note           *string    `db:"note" json:"note,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Progress summarizes item completion for one instance.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// ItemPatch is a partial update for one item. Nil fields are left untouched.
type ItemPatch struct {
	Done  *bool   `json:"done,omitempty"`
	Value *string `json:"value,omitempty"`
	Note  *string `json:"note,omitempty"`
}
