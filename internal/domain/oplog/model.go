package oplog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OperationRecord is one applied sync operation. The client-supplied op_id is
// globally unique and is the sole idempotency key; rows are append-only and
// never updated or deleted.
type OperationRecord struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OpID      string          `db:"op_id" json:"op_id"`
	Action    string          `db:"action" json:"action"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	UserID    *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Operation is one incoming mutation from a client replay batch.
type Operation struct {
	OpID    string          `json:"op_id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Status is the terminal state of one operation.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusDuplicate Status = "duplicate"
	StatusForbidden Status = "forbidden"
	StatusError     Status = "error"
)

// Result reports one operation's outcome to the caller.
type Result struct {
	OpID    string `json:"op_id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// BatchResult is the per-operation result list plus the op_ids that were
// actually applied, in order.
type BatchResult struct {
	Results    []Result `json:"results"`
	AppliedIDs []string `json:"applied_ids"`
}
