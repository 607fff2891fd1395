package oplog

import (
	"context"
	"errors"
)

// ErrDuplicate signals the op_id already exists in the log. It is the
// storage-level answer to a replay racing the first submission; the unique
// constraint decides, not a read-then-write check.
var ErrDuplicate = errors.New("operation already recorded")

type Repository interface {
	// Exists is the cheap pre-check; Insert remains the authority.
	Exists(ctx context.Context, opID string) (bool, error)
	// Insert appends one record. Returns ErrDuplicate when the op_id is
	// already present.
	Insert(ctx context.Context, rec *OperationRecord) error
	List(ctx context.Context, limit, offset int) ([]*OperationRecord, int, error)
}
