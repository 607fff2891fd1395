package files

import (
	"time"

	"github.com/google/uuid"
)

// FileAsset is the metadata record for one uploaded document (discharge
// summaries, ECG scans, consent forms). Bytes live on disk under StorageKey;
// the row is what the checklist precondition checker counts.
type FileAsset struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ChecklistItemID *uuid.UUID `db:"checklist_item_id" json:"checklist_item_id,omitempty"`

	StorageKey   string  `db:"storage_key" json:"-"`
	OriginalName string  `db:"original_name" json:"original_name"`
	MimeType     string  `db:"mime_type" json:"mime_type"`
	SizeBytes    int64   `db:"size_bytes" json:"size_bytes"`
	Kind         *string `db:"kind" json:"kind,omitempty"`
	Description  *string `db:"description" json:"description,omitempty"`

	UploadedBy *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
