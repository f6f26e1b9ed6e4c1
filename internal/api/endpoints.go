package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// AttendanceQuery is the filter set of GET /attendance.
type AttendanceQuery struct {
	BranchID string
	From     model.Day
	To       model.Day
	Status   model.ApprovalStatus // "" = any
	Q        string               // "" = no text filter
	Page     int
	Limit    int
}

// Values encodes the query, omitting unset optional filters.
func (q AttendanceQuery) Values() url.Values {
	v := url.Values{}
	v.Set("branchId", q.BranchID)
	if !q.From.IsZero() {
		v.Set("from", q.From.String())
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.String())
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// DeviceQuery is the filter set of GET /devices.
type DeviceQuery struct {
	Q        string
	Status   string
	BranchID string
	Page     int
	Limit    int
	Sort     string
	Order    string
}

// Values encodes the query, omitting unset optional filters.
func (q DeviceQuery) Values() url.Values {
	v := url.Values{}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.BranchID != "" {
		v.Set("branchId", q.BranchID)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	return v
}

// DeviceUpdate is the body of PUT /devices/:id.
type DeviceUpdate struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// IDMSAttendanceSync is the body of POST /idms/sync-attendance.
type IDMSAttendanceSync struct {
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	DeviceID string `json:"deviceId,omitempty"`
}

func idPath(prefix, id, suffix string) string {
	return prefix + "/" + url.PathEscape(id) + suffix
}

// decodeArray decodes a JSON array into out and treats any other shape as
// empty, the way the list screens tolerate odd payloads.
func decodeArray(raw json.RawMessage, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decoding list")
}

// Branches lists branches with employee and device counts.
func (c *Client) Branches(ctx context.Context) ([]model.Branch, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/attendance/branches", nil, &raw); err != nil {
		return nil, err
	}
	branches := []model.Branch{}
	if err := decodeArray(raw, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// Attendance lists one page of attendance records.
func (c *Client) Attendance(ctx context.Context, q AttendanceQuery) (model.AttendancePage, error) {
	var page model.AttendancePage
	err := c.Get(ctx, "/attendance", q.Values(), &page)
	if page.Data == nil {
		page.Data = []model.AttendanceRecord{}
	}
	return page, err
}

// AttendanceLogs fetches the authoritative punch list of one record.
func (c *Client) AttendanceLogs(ctx context.Context, id string) ([]model.PunchEvent, error) {
	var resp model.LogsResponse
	if err := c.Get(ctx, idPath("/attendance", id, "/logs"), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Logs == nil {
		resp.Logs = []model.PunchEvent{}
	}
	return resp.Logs, nil
}

// UpdateApproval sets the approval status of one record.
func (c *Client) UpdateApproval(ctx context.Context, id string, status model.ApprovalStatus) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	body := map[string]model.ApprovalStatus{"status": status}
	err := c.Patch(ctx, idPath("/attendance", id, "/approval"), body, &rec)
	return rec, err
}

// Devices lists one page of devices.
func (c *Client) Devices(ctx context.Context, q DeviceQuery) (model.DevicePage, error) {
	var page model.DevicePage
	err := c.Get(ctx, "/devices", q.Values(), &page)
	if page.Data == nil {
		page.Data = []model.Device{}
	}
	return page, err
}

// DeviceBranches lists the branches devices can be assigned to.
func (c *Client) DeviceBranches(ctx context.Context) ([]model.Branch, error) {
	return c.branchList(ctx, "/devices/branches")
}

// AllBranches is the legacy branch list endpoint.
func (c *Client) AllBranches(ctx context.Context) ([]model.Branch, error) {
	return c.branchList(ctx, "/getAllBranches")
}

func (c *Client) branchList(ctx context.Context, path string) ([]model.Branch, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	branches := []model.Branch{}
	if err := decodeArray(raw, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// RefreshDeviceStatus asks the backend to poll every device.
func (c *Client) RefreshDeviceStatus(ctx context.Context) error {
	return c.Post(ctx, "/devices/refresh-status", nil, nil)
}

// SyncDevicesFromIDMS imports the iDMS device list.
func (c *Client) SyncDevicesFromIDMS(ctx context.Context) error {
	return c.Post(ctx, "/devices/sync-from-idms", nil, nil)
}

// IDMSRawDevices returns the unprocessed iDMS device payload.
func (c *Client) IDMSRawDevices(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Get(ctx, "/idms/devices/raw", nil, &raw)
	return raw, err
}

// UpdateDevice changes a device's operator labels.
func (c *Client) UpdateDevice(ctx context.Context, id string, upd DeviceUpdate) error {
	return c.Put(ctx, idPath("/devices", id, ""), upd, nil)
}

// AssignDeviceBranch moves a device to a branch.
func (c *Client) AssignDeviceBranch(ctx context.Context, id, branchID string) error {
	return c.Patch(ctx, idPath("/devices", id, "/assign-branch"), map[string]string{"branchId": branchID}, nil)
}

// DeleteDevice removes a device registration.
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	return c.Delete(ctx, idPath("/devices", id, ""), nil)
}

// PullLogs dispatches a pull-logs command.
func (c *Client) PullLogs(ctx context.Context, req model.PullLogsRequest) error {
	return c.Post(ctx, "/devices/pull-logs", req, nil)
}

// SyncTime dispatches a sync-time command.
func (c *Client) SyncTime(ctx context.Context, req model.SyncTimeRequest) error {
	return c.Post(ctx, "/devices/sync-time", req, nil)
}

// Commands lists the dispatched command history.
func (c *Client) Commands(ctx context.Context) ([]model.DeviceCommand, error) {
	var list model.CommandList
	if err := c.Get(ctx, "/devices/commands", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		return []model.DeviceCommand{}, nil
	}
	return list, nil
}

// SyncAttendanceFromIDMS pulls raw punches from iDMS into attendance records.
func (c *Client) SyncAttendanceFromIDMS(ctx context.Context, req IDMSAttendanceSync) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "/idms/sync-attendance", req, &raw)
	return raw, err
}

// Employees lists every employee with machine id and branch.
func (c *Client) Employees(ctx context.Context) ([]model.Employee, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/employees", nil, &raw); err != nil {
		return nil, err
	}
	employees := []model.Employee{}
	if err := decodeArray(raw, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

// Employee fetches one employee.
func (c *Client) Employee(ctx context.Context, id string) (model.Employee, error) {
	var emp model.Employee
	err := c.Get(ctx, idPath("/employees", id, ""), nil, &emp)
	return emp, err
}

// EmployeeAttendance lists an employee's daily records in [from, to].
func (c *Client) EmployeeAttendance(ctx context.Context, id string, from, to model.Day) ([]model.AttendanceRecord, error) {
	q := url.Values{}
	q.Set("from", from.String())
	q.Set("to", to.String())
	var raw json.RawMessage
	if err := c.Get(ctx, idPath("/employees", id, "/attendance"), q, &raw); err != nil {
		return nil, err
	}
	records := []model.AttendanceRecord{}
	if err := decodeArray(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}
