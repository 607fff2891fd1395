package patient

import (
	"errors"
	"fmt"
)

// Action is a guarded explicit transition requested by a user, as opposed to
// the soft recompute that follows checklist progress.
type Action string

const (
	ActionSubmitForReview Action = "submit_for_review"
	ActionRequestChanges  Action = "surgeon_request_changes"
	ActionApprove         Action = "surgeon_approve"
	ActionScheduleSurgery Action = "schedule_surgery"
	ActionCompleteSurgery Action = "complete_surgery"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions maps each explicit action to the statuses it may fire from and
// the status it lands on. submit_for_review is deliberately permissive: staff
// may resubmit from any state that is not already past surgeon sign-off.
var transitions = map[Action]struct {
	from map[Status]bool
	to   Status
}{
	ActionSubmitForReview: {
		from: map[Status]bool{
			StatusNew:              true,
			StatusInPreparation:    true,
			StatusReadyForReview:   true,
			StatusRevisionRequired: true,
			StatusSurgeryScheduled: true,
		},
		to: StatusReadyForReview,
	},
	ActionApprove: {
		from: map[Status]bool{StatusReadyForReview: true},
		to:   StatusApproved,
	},
	ActionRequestChanges: {
		from: map[Status]bool{StatusReadyForReview: true},
		to:   StatusRevisionRequired,
	},
	ActionScheduleSurgery: {
		from: map[Status]bool{StatusApproved: true},
		to:   StatusSurgeryScheduled,
	},
	ActionCompleteSurgery: {
		from: map[Status]bool{StatusSurgeryScheduled: true},
		to:   StatusSurgeryDone,
	},
}

// Transition applies an explicit action to the current status. Returns
// ErrInvalidTransition (wrapped with both sides) when the action is not
// allowed from current. The caller reports this as a rejected operation; it
// is never fatal.
func Transition(current Status, action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	if !t.from[current] {
		return current, fmt.Errorf("%w: %s not allowed from %s", ErrInvalidTransition, action, current)
	}
	return t.to, nil
}

// NextFromChecklist derives the status implied by checklist completion.
// Post-review statuses always win: once a surgeon has acted, checklist edits
// cannot move the patient. All items done promotes to READY_FOR_REVIEW; a
// NEW patient with a checklist present is bumped to IN_PREPARATION. Note that
// a patient already at READY_FOR_REVIEW whose checklist regresses stays at
// READY_FOR_REVIEW. That boundary is deliberate; only the statuses named here
// ever move. Flagged for product clarification.
func NextFromChecklist(current Status, doneCount, totalCount int) Status {
	if current.IsPostReview() {
		return current
	}
	if totalCount > 0 && doneCount == totalCount {
		return StatusReadyForReview
	}
	if current == StatusNew && totalCount > 0 {
		return StatusInPreparation
	}
	return current
}
