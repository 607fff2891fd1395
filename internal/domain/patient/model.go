package patient

import (
	"time"

	"github.com/google/uuid"
)

// Status is the patient's position in the pre-surgical pipeline.
type Status string

const (
	StatusNew              Status = "NEW"
	StatusInPreparation    Status = "IN_PREPARATION"
	StatusReadyForReview   Status = "READY_FOR_REVIEW"
	StatusRevisionRequired Status = "REVISION_REQUIRED"
	StatusApproved         Status = "APPROVED"
	StatusSurgeryScheduled Status = "SURGERY_SCHEDULED"
	StatusSurgeryDone      Status = "SURGERY_DONE"
)

// postReview holds the statuses the checklist-derived recompute must never
// override. READY_FOR_REVIEW is deliberately absent from the set; see
// NextFromChecklist for how it behaves under recompute.
var postReview = map[Status]bool{
	StatusRevisionRequired: true,
	StatusApproved:         true,
	StatusSurgeryScheduled: true,
	StatusSurgeryDone:      true,
}

// IsPostReview reports whether a surgeon has already acted on s.
func (s Status) IsPostReview() bool { return postReview[s] }

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInPreparation, StatusReadyForReview, StatusRevisionRequired,
		StatusApproved, StatusSurgeryScheduled, StatusSurgeryDone:
		return true
	}
	return false
}

// Patient maps to the patient table.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	FullName       string     `db:"full_name" json:"full_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Snils          *string    `db:"snils" json:"snils,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Diagnosis      *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	OperationType  *string    `db:"operation_type" json:"operation_type,omitempty"`
	Eye            *string    `db:"eye" json:"eye,omitempty"`
	Status         Status     `db:"status" json:"status"`
	SurgeryDate    *time.Time `db:"surgery_date" json:"surgery_date,omitempty"`
	ReviewComment  *string    `db:"review_comment" json:"review_comment,omitempty"`
	CreatedBy      *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Summary is the per-status patient count used by the dashboard.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}
