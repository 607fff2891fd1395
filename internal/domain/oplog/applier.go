package oplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/k1maruuu/eyes/internal/domain/checklist"
	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
	"github.com/k1maruuu/eyes/internal/platform/db"
)

// actionRoles is the full set of replayable actions and the roles allowed to
// submit each one. An action missing from this map is rejected as forbidden,
// not error: from the server's point of view an unknown action and a known
// action from the wrong role are the same thing, a request the caller was
// never entitled to make.
var actionRoles = map[string][]string{
	"create_patient":          {auth.RoleAdmin, auth.RoleFeldsher},
	"update_patient":          {auth.RoleAdmin, auth.RoleFeldsher},
	"generate_checklist":      {auth.RoleAdmin, auth.RoleFeldsher},
	"update_checklist_item":   {auth.RoleAdmin, auth.RoleFeldsher, auth.RoleSurgeon},
	"submit_for_review":       {auth.RoleAdmin, auth.RoleFeldsher},
	"surgeon_approve":         {auth.RoleAdmin, auth.RoleSurgeon},
	"surgeon_request_changes": {auth.RoleAdmin, auth.RoleSurgeon},
}

func roleAllowed(action, role string) bool {
	for _, r := range actionRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}

// safeErrors are domain rejections whose text may be echoed back to the
// client. Anything else is reported as a generic internal error so that
// driver and infrastructure details never leak through the sync surface.
var safeErrors = []error{
	patient.ErrNotFound,
	patient.ErrFullNameRequired,
	patient.ErrInvalidTransition,
	patient.ErrBadSnils,
	patient.ErrBadEye,
	checklist.ErrTemplateNotFound,
	checklist.ErrTemplateInactive,
	checklist.ErrEmptyTemplate,
	checklist.ErrNoOperationType,
	checklist.ErrInstanceNotFound,
	checklist.ErrItemNotFound,
	checklist.ErrValueRequired,
	checklist.ErrFileRequired,
	checklist.ErrEvidenceMissing,
	checklist.ErrEvidenceImplausible,
}

// errBadPayload wraps payload decode and shape problems; its text is safe to
// return.
type errBadPayload struct{ err error }

func (e errBadPayload) Error() string { return "invalid payload: " + e.err.Error() }

// Applier replays client operation batches. Each operation is applied
// independently: the domain mutation and its log record commit in one
// transaction, and a failure in one op never rolls back its neighbours.
type Applier struct {
	records    Repository
	patients   *patient.Service
	checklists *checklist.Service
	tx         db.TxRunner
	log        zerolog.Logger
}

func NewApplier(records Repository, patients *patient.Service, checklists *checklist.Service, tx db.TxRunner, log zerolog.Logger) *Applier {
	return &Applier{records: records, patients: patients, checklists: checklists, tx: tx, log: log}
}

// ApplyBatch processes the operations in order and reports a terminal status
// for every one. The result slice always has one entry per input op.
func (a *Applier) ApplyBatch(ctx context.Context, actor auth.Actor, ops []Operation) *BatchResult {
	out := &BatchResult{Results: make([]Result, 0, len(ops)), AppliedIDs: []string{}}
	for _, op := range ops {
		res := a.ApplyOne(ctx, actor, op)
		out.Results = append(out.Results, res)
		if res.Status == StatusApplied {
			out.AppliedIDs = append(out.AppliedIDs, res.OpID)
		}
	}
	return out
}

// ApplyOne runs the pipeline for a single operation: dedup, authorization,
// then domain execution plus the log append inside one transaction.
// Operations rejected before execution leave no log entry, so a corrected
// resubmission under the same op_id can still succeed.
func (a *Applier) ApplyOne(ctx context.Context, actor auth.Actor, op Operation) Result {
	if op.OpID == "" || len(op.OpID) > 64 {
		return Result{OpID: op.OpID, Status: StatusError, Message: "op_id must be 1-64 characters"}
	}

	exists, err := a.records.Exists(ctx, op.OpID)
	if err != nil {
		a.log.Error().Err(err).Str("op_id", op.OpID).Msg("oplog dedup check failed")
		return Result{OpID: op.OpID, Status: StatusError, Message: "internal error"}
	}
	if exists {
		return Result{OpID: op.OpID, Status: StatusDuplicate}
	}

	if !roleAllowed(op.Action, actor.Role) {
		return Result{OpID: op.OpID, Status: StatusForbidden,
			Message: fmt.Sprintf("action %q is not permitted for role %q", op.Action, actor.Role)}
	}

	err = a.tx(ctx, func(ctx context.Context) error {
		if err := a.execute(ctx, actor, op); err != nil {
			return err
		}
		userID := actor.ID
		return a.records.Insert(ctx, &OperationRecord{
			OpID:    op.OpID,
			Action:  op.Action,
			Payload: op.Payload,
			UserID:  &userID,
		})
	})
	if err != nil {
		return a.classify(op, err)
	}
	return Result{OpID: op.OpID, Status: StatusApplied}
}

func (a *Applier) classify(op Operation, err error) Result {
	if errors.Is(err, ErrDuplicate) {
		// Lost the insert race to a concurrent replay of the same op.
		return Result{OpID: op.OpID, Status: StatusDuplicate}
	}
	if errors.Is(err, patient.ErrScopeDenied) {
		return Result{OpID: op.OpID, Status: StatusForbidden, Message: patient.ErrScopeDenied.Error()}
	}
	var bad errBadPayload
	if errors.As(err, &bad) {
		return Result{OpID: op.OpID, Status: StatusError, Message: bad.Error()}
	}
	for _, safe := range safeErrors {
		if errors.Is(err, safe) {
			return Result{OpID: op.OpID, Status: StatusError, Message: err.Error()}
		}
	}
	a.log.Error().Err(err).Str("op_id", op.OpID).Str("action", op.Action).Msg("sync operation failed")
	return Result{OpID: op.OpID, Status: StatusError, Message: "internal error"}
}

func decode(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 {
		return errBadPayload{errors.New("payload is required")}
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errBadPayload{err}
	}
	return nil
}

type createPatientPayload struct {
	FullName       string     `json:"full_name"`
	BirthDate      *time.Time `json:"birth_date"`
	Snils          *string    `json:"snils"`
	Phone          *string    `json:"phone"`
	Diagnosis      *string    `json:"diagnosis"`
	OperationType  *string    `json:"operation_type"`
	Eye            *string    `json:"eye"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

type updatePatientPayload struct {
	PatientID uuid.UUID `json:"patient_id"`
	patient.UpdateFields
}

type generateChecklistPayload struct {
	PatientID  uuid.UUID  `json:"patient_id"`
	TemplateID *uuid.UUID `json:"template_id"`
}

type updateChecklistItemPayload struct {
	InstanceID uuid.UUID `json:"instance_id"`
	ItemID     uuid.UUID `json:"item_id"`
	Done       *bool     `json:"done"`
	Value      *string   `json:"value"`
	Note       *string   `json:"note"`
}

type patientActionPayload struct {
	PatientID uuid.UUID `json:"patient_id"`
	Comment   *string   `json:"comment"`
}

func (a *Applier) execute(ctx context.Context, actor auth.Actor, op Operation) error {
	switch op.Action {
	case "create_patient":
		var pl createPatientPayload
		if err := decode(op.Payload, &pl); err != nil {
			return err
		}
		if pl.FullName == "" {
			return errBadPayload{errors.New("full_name is required")}
		}
		p := &patient.Patient{
			FullName:       pl.FullName,
			BirthDate:      pl.BirthDate,
			Snils:          pl.Snils,
			Phone:          pl.Phone,
			Diagnosis:      pl.Diagnosis,
			OperationType:  pl.OperationType,
			Eye:            pl.Eye,
			OrganizationID: pl.OrganizationID,
		}
		return a.patients.Create(ctx, actor, p)

	case "update_patient":
		var pl updatePatientPayload
		if err := decode(op.Payload, &pl); err != nil {
			return err
		}
		if pl.PatientID == uuid.Nil {
			return errBadPayload{errors.New("patient_id is required")}
		}
		_, err := a.patients.Update(ctx, actor, pl.PatientID, pl.UpdateFields)
		return err

	case "generate_checklist":
		var pl generateChecklistPayload
		if err := decode(op.Payload, &pl); err != nil {
			return err
		}
		if pl.PatientID == uuid.Nil {
			return errBadPayload{errors.New("patient_id is required")}
		}
		_, err := a.checklists.Generate(ctx, actor, pl.PatientID, pl.TemplateID)
		return err

	case "update_checklist_item":
		var pl updateChecklistItemPayload
		if err := decode(op.Payload, &pl); err != nil {
			return err
		}
		if pl.InstanceID == uuid.Nil || pl.ItemID == uuid.Nil {
			return errBadPayload{errors.New("instance_id and item_id are required")}
		}
		patch := checklist.ItemPatch{Done: pl.Done, Value: pl.Value, Note: pl.Note}
		_, _, err := a.checklists.UpdateItem(ctx, actor, pl.InstanceID, pl.ItemID, patch)
		return err

	case "submit_for_review", "surgeon_approve", "surgeon_request_changes":
		var pl patientActionPayload
		if err := decode(op.Payload, &pl); err != nil {
			return err
		}
		if pl.PatientID == uuid.Nil {
			return errBadPayload{errors.New("patient_id is required")}
		}
		_, err := a.patients.Apply(ctx, actor, pl.PatientID, patient.Action(op.Action), pl.Comment)
		return err
	}
	// Unreachable while actionRoles and this switch stay in sync.
	return fmt.Errorf("unhandled action %q", op.Action)
}

// List exposes the log for audit reads.
func (a *Applier) List(ctx context.Context, limit, offset int) ([]*OperationRecord, int, error) {
	return a.records.List(ctx, limit, offset)
}
