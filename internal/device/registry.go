// Package device lists biometric terminals and dispatches commands to them.
package device

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

// DefaultLimit is the device page size used when none is given.
const DefaultLimit = 20

// Filters narrow the device list. Empty fields do not filter.
type Filters struct {
	Query    string
	Status   string
	BranchID string
}

// Registry is the device list view. Like the attendance view it owns its rows
// and refreshes them only by loading.
type Registry struct {
	client *api.Client
	notify notify.Notifier

	mu      sync.Mutex
	filters Filters
	rows    []model.Device
	total   int
	page    int
	limit   int
}

// NewRegistry returns an empty registry with no filters.
func NewRegistry(client *api.Client, n notify.Notifier, limit int) *Registry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Registry{client: client, notify: n, rows: []model.Device{}, page: 1, limit: limit}
}

// Load fetches one page, newest first, and replaces rows and total. On
// failure the previous rows are kept and an error toast is raised.
func (r *Registry) Load(ctx context.Context, page, limit int) error {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = r.Limit()
	}
	r.mu.Lock()
	f := r.filters
	r.mu.Unlock()

	res, err := r.client.Devices(ctx, api.DeviceQuery{
		Q:        strings.TrimSpace(f.Query),
		Status:   f.Status,
		BranchID: f.BranchID,
		Page:     page,
		Limit:    limit,
		Sort:     "createdAt",
		Order:    "desc",
	})
	if err != nil {
		r.notify.Error(api.UserMessage(err, "Failed to fetch devices"))
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = res.Data
	r.total = res.Total
	r.page = page
	r.limit = limit
	return nil
}

// Reload re-fetches the current page.
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	page, limit := r.page, r.limit
	r.mu.Unlock()
	return r.Load(ctx, page, limit)
}

// ApplyFilters replaces the filters and loads page 1.
func (r *Registry) ApplyFilters(ctx context.Context, f Filters) error {
	r.mu.Lock()
	r.filters = f
	limit := r.limit
	r.mu.Unlock()
	return r.Load(ctx, 1, limit)
}

// ResetFilters clears every filter and loads page 1.
func (r *Registry) ResetFilters(ctx context.Context) error {
	return r.ApplyFilters(ctx, Filters{})
}

// Rows returns a copy of the current page.
func (r *Registry) Rows() []model.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Device(nil), r.rows...)
}

// Find returns the device on the current page with the given id or serial
// number.
func (r *Registry) Find(key string) (model.Device, bool) {
	for _, d := range r.Rows() {
		if d.ID == key || d.SerialNumber == key {
			return d, true
		}
	}
	return model.Device{}, false
}

// Total is the server-reported total for the current filters.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Page is the 1-based page currently shown.
func (r *Registry) Page() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page
}

// Limit is the current page size.
func (r *Registry) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// Filters returns the applied filters.
func (r *Registry) Filters() Filters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filters
}

// Branches lists assignable branches, falling back to the legacy endpoint
// when the device-scoped one fails.
func (r *Registry) Branches(ctx context.Context) ([]model.Branch, error) {
	branches, err := r.client.DeviceBranches(ctx)
	if err == nil {
		return branches, nil
	}
	branches, err = r.client.AllBranches(ctx)
	if err != nil {
		r.notify.Error(api.UserMessage(err, "Failed to load branches"))
		return []model.Branch{}, err
	}
	return branches, nil
}

// RefreshStatus asks the backend to poll every device, then reloads. It does
// not wait for or track individual device responses.
func (r *Registry) RefreshStatus(ctx context.Context) error {
	r.notify.Info("Refreshing status from iDMS…")
	if err := r.client.RefreshDeviceStatus(ctx); err != nil {
		r.notify.Error(api.UserMessage(err, "Refresh failed"))
		return err
	}
	r.notify.Success("Status refreshed")
	return r.Reload(ctx)
}

// SyncFromIDMS imports the iDMS device list, then loads page 1.
func (r *Registry) SyncFromIDMS(ctx context.Context) error {
	r.notify.Info("Syncing devices from iDMS…")
	if err := r.client.SyncDevicesFromIDMS(ctx); err != nil {
		r.notify.Error(api.UserMessage(err, "Sync failed"))
		return err
	}
	r.notify.Success("Synced from iDMS")
	return r.Load(ctx, 1, r.Limit())
}

// RawIDMS returns the unprocessed iDMS device payload.
func (r *Registry) RawIDMS(ctx context.Context) (json.RawMessage, error) {
	raw, err := r.client.IDMSRawDevices(ctx)
	if err != nil {
		r.notify.Error(api.UserMessage(err, "Failed to fetch iDMS raw list"))
		return nil, err
	}
	return raw, nil
}

// EditRequest is the operator's edit of one device. An empty BranchID leaves
// the assignment untouched.
type EditRequest struct {
	Name     string
	Location string
	BranchID string
}

// EditStep names the step of an edit that failed.
type EditStep string

const (
	StepFields EditStep = "update fields"
	StepBranch EditStep = "assign branch"
)

// EditResult reports how far an edit got. The two steps are separate requests
// and a failure of the second does not undo the first.
type EditResult struct {
	FieldsUpdated  bool
	BranchAssigned bool
	FailedStep     EditStep // "" on success
	Err            error
}

// Partial reports whether the fields were saved but the branch was not.
func (e EditResult) Partial() bool {
	return e.FieldsUpdated && e.FailedStep == StepBranch
}

// Edit updates name and location, then assigns the branch when one was
// chosen. The list is reloaded after any outcome that changed something.
func (r *Registry) Edit(ctx context.Context, d model.Device, req EditRequest) EditResult {
	var res EditResult
	if err := r.client.UpdateDevice(ctx, d.ID, api.DeviceUpdate{Name: req.Name, Location: req.Location}); err != nil {
		res.FailedStep, res.Err = StepFields, err
		r.notify.Error(api.UserMessage(err, "Update failed"))
		return res
	}
	res.FieldsUpdated = true

	if req.BranchID != "" {
		if err := r.client.AssignDeviceBranch(ctx, d.ID, req.BranchID); err != nil {
			res.FailedStep, res.Err = StepBranch, err
			r.notify.Error(api.UserMessage(err, "Device updated but branch assignment failed"))
			_ = r.Reload(ctx)
			return res
		}
		res.BranchAssigned = true
	}
	r.notify.Success("Device updated")
	_ = r.Reload(ctx)
	return res
}

// Delete removes a device registration and reloads.
func (r *Registry) Delete(ctx context.Context, d model.Device) error {
	if err := r.client.DeleteDevice(ctx, d.ID); err != nil {
		r.notify.Error(api.UserMessage(err, "Delete failed"))
		return err
	}
	r.notify.Success("Deleted")
	return r.Reload(ctx)
}

// Commands lists the dispatched command history.
func Commands(ctx context.Context, client *api.Client, n notify.Notifier) ([]model.DeviceCommand, error) {
	cmds, err := client.Commands(ctx)
	if err != nil {
		n.Error(api.UserMessage(err, "Failed to fetch commands"))
		return []model.DeviceCommand{}, err
	}
	return cmds, nil
}
