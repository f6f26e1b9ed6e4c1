package attendance

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

// ErrSuperseded is returned by a load whose response arrived after a newer
// load started or after the view was closed. Its result is discarded.
var ErrSuperseded = errors.New("attendance load superseded")

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 20

// View is the attendance list of one branch. It owns its rows; nothing else
// holds a reference to them, and they change only through Load.
type View struct {
	client     *api.Client
	notify     notify.Notifier
	branchID   string
	branchName string

	mu      sync.Mutex
	draft   Filters
	applied Filters
	rows    []model.AttendanceRecord
	total   int
	page    int
	limit   int
	gen     uint64
	cancel  context.CancelFunc
	loading bool
}

// NewView binds a view to branchID with initial filters. No request is made
// until Load or Open.
func NewView(client *api.Client, n notify.Notifier, branchID, branchName string, filters Filters, limit int) (*View, error) {
	if strings.TrimSpace(branchID) == "" {
		return nil, &ValidationError{Field: "branchId", Message: "branch is required"}
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if branchName == "" {
		branchName = "Branch Attendance"
	}
	return &View{
		client:     client,
		notify:     n,
		branchID:   branchID,
		branchName: branchName,
		draft:      filters,
		applied:    filters,
		rows:       []model.AttendanceRecord{},
		page:       1,
		limit:      limit,
	}, nil
}

// Open performs the initial load of page 1.
func (v *View) Open(ctx context.Context) error {
	return v.Load(ctx, 1, v.Limit())
}

// Load fetches one page with the applied filters and replaces rows and total
// wholesale. A newer Load or Close cancels this one; a superseded response
// never reaches the view. On failure rows, total and page keep their last
// successful values and an error toast is raised.
func (v *View) Load(ctx context.Context, page, limit int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Message: "page must be at least 1"}
	}
	if limit < 1 {
		return &ValidationError{Field: "limit", Message: "limit must be at least 1"}
	}

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	lctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.loading = true
	q := v.query(page, limit)
	v.mu.Unlock()
	defer cancel()

	res, err := v.client.Attendance(lctx, q)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return ErrSuperseded
	}
	v.cancel = nil
	v.loading = false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		v.notify.Error(api.UserMessage(err, "Failed to load attendance"))
		return err
	}
	v.rows = res.Data
	v.total = res.Total
	v.page = page
	v.limit = limit
	return nil
}

func (v *View) query(page, limit int) api.AttendanceQuery {
	return api.AttendanceQuery{
		BranchID: v.branchID,
		From:     v.applied.From,
		To:       v.applied.To,
		Status:   v.applied.Status,
		Q:        strings.TrimSpace(v.applied.Query),
		Page:     page,
		Limit:    limit,
	}
}

// Reload re-fetches the current page. It is the view's invalidate entry point.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	page, limit := v.page, v.limit
	v.mu.Unlock()
	return v.Load(ctx, page, limit)
}

// SetPage loads page p at the current page size.
func (v *View) SetPage(ctx context.Context, p int) error {
	return v.Load(ctx, p, v.Limit())
}

// SetLimit changes the page size and returns to page 1.
func (v *View) SetLimit(ctx context.Context, limit int) error {
	return v.Load(ctx, 1, limit)
}

// SetDraft edits the pending filters. Nothing is requested until ApplyFilters.
func (v *View) SetDraft(f Filters) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = f
}

// ApplyFilters validates the draft and, when valid, makes it the applied
// filter set and loads page 1. An invalid draft makes no request.
func (v *View) ApplyFilters(ctx context.Context) error {
	v.mu.Lock()
	draft := v.draft
	v.mu.Unlock()
	if err := draft.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	v.applied = draft
	limit := v.limit
	v.mu.Unlock()
	return v.Load(ctx, 1, limit)
}

// Close cancels any in-flight load and discards its result.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.loading = false
}

// Rows returns a copy of the current page.
func (v *View) Rows() []model.AttendanceRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.AttendanceRecord(nil), v.rows...)
}

// Row returns the current copy of the record with id.
func (v *View) Row(id string) (model.AttendanceRecord, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.rows {
		if r.ID == id {
			return r, true
		}
	}
	return model.AttendanceRecord{}, false
}

// Total is the server-reported total for the applied filters.
func (v *View) Total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// Page is the 1-based page currently shown.
func (v *View) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Limit is the current page size.
func (v *View) Limit() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.limit
}

// Pages is the page count implied by Total and Limit.
func (v *View) Pages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.total == 0 {
		return 1
	}
	return (v.total + v.limit - 1) / v.limit
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Applied returns the filters the current rows were loaded with.
func (v *View) Applied() Filters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applied
}

// Draft returns the pending filters.
func (v *View) Draft() Filters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// BranchID is the branch the view is bound to.
func (v *View) BranchID() string { return v.branchID }

// BranchName is the display name given at construction.
func (v *View) BranchName() string { return v.branchName }

// undo remembers a row's status before an optimistic change.
type undo struct {
	recordID string
	prev     model.ApprovalStatus
}

// applyOptimistic sets the row's status locally and returns what it replaced.
// The returned token is informational: failures are repaired by Reload, not
// by restoring prev.
func (v *View) applyOptimistic(id string, next model.ApprovalStatus) (undo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.rows {
		if v.rows[i].ID == id {
			u := undo{recordID: id, prev: v.rows[i].Status()}
			v.rows[i].ApprovalStatus = next
			return u, true
		}
	}
	return undo{}, false
}
