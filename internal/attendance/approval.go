package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

// ErrNoop is returned when a record is asked to move to the status it
// already has. No request is made.
var ErrNoop = errors.New("record already has that status")

// CanTransition reports whether current may move to next. Every pair of
// distinct statuses is allowed; there is no terminal state.
func CanTransition(current, next model.ApprovalStatus) bool {
	return next.Valid() && current.Normalize() != next
}

// Transition is the outcome of one approval change.
type Transition struct {
	RecordID string
	From     model.ApprovalStatus // "" when the record was not on the page
	To       model.ApprovalStatus
	// Reloaded is set when the change failed and the page was re-fetched.
	Reloaded bool
	Err      error
}

// Approvals changes approval statuses of rows shown in a View.
//
// Concurrent calls are independent: each PATCH completes on its own and the
// row shows whichever response for that row arrives last.
type Approvals struct {
	client *api.Client
	view   *View
	notify notify.Notifier
}

// NewApprovals returns an Approvals acting on view's rows.
func NewApprovals(client *api.Client, view *View, n notify.Notifier) *Approvals {
	return &Approvals{client: client, view: view, notify: n}
}

// Set moves the record to next. The row changes immediately; if the backend
// rejects the change the whole page is reloaded from the server instead of
// restoring the previous value.
func (a *Approvals) Set(ctx context.Context, recordID string, next model.ApprovalStatus) (Transition, error) {
	t := Transition{RecordID: recordID, To: next}
	if !next.Valid() {
		t.Err = &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", next)}
		return t, t.Err
	}
	// A record off the current page is still sent; it just has no row to
	// update optimistically.
	if rec, ok := a.view.Row(recordID); ok && !CanTransition(rec.Status(), next) {
		t.From = rec.Status()
		t.Err = ErrNoop
		return t, t.Err
	}
	if u, ok := a.view.applyOptimistic(recordID, next); ok {
		t.From = u.prev
	}

	if _, err := a.client.UpdateApproval(ctx, recordID, next); err != nil {
		a.notify.Error(api.UserMessage(err, "Failed to update status"))
		// The load reports its own failure.
		_ = a.view.Reload(ctx)
		t.Reloaded = true
		t.Err = err
		return t, err
	}
	a.notify.Success("Marked as " + string(next))
	return t, nil
}
