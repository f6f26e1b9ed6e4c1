// Package sandbox is an in-memory stand-in for the clinic backend. It serves
// the same REST routes the console consumes so workflows can be rehearsed
// and tested end to end without a real deployment.
package sandbox

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// User is a sandbox login.
type User struct {
	Email    string
	Password string
	Role     string
}

// IDMSDevice is one entry of the simulated iDMS device list.
type IDMSDevice struct {
	SerialNumber string `json:"SerialNumber"`
	DeviceName   string `json:"DeviceName"`
	Location     string `json:"Location,omitempty"`
	Online       bool   `json:"Online"`
}

type attendanceRow struct {
	rec        model.AttendanceRecord
	branchID   string
	employeeID string
}

type deviceRow struct {
	dev       model.Device
	createdAt time.Time
	reachable bool
}

type employeeRow struct {
	emp      model.Employee
	branchID string
}

type failure struct {
	status  int
	message string
}

// Store holds every sandbox entity. All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[string]User
	branches  []model.Branch
	employees []employeeRow
	records   []*attendanceRow
	devices   []*deviceRow
	idms      []IDMSDevice
	commands  []model.DeviceCommand
	failures  map[string][]failure
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    map[string]User{},
		failures: map[string][]failure{},
	}
}

// SetClock replaces the store's time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser registers a login.
func (s *Store) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(u.Email)] = u
}

func (s *Store) authenticate(email, password string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok || u.Password != password {
		return User{}, false
	}
	return u, true
}

// AddBranch registers a branch. Counts are computed, not stored.
func (s *Store) AddBranch(b model.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.EmployeeCount, b.DeviceCount = 0, 0
	s.branches = append(s.branches, b)
}

func (s *Store) branchRef(id string) *model.BranchRef {
	for _, b := range s.branches {
		if b.ID == id {
			return &model.BranchRef{ID: b.ID, Name: b.Name, Email: b.Email}
		}
	}
	return nil
}

// AddEmployee registers an employee at branchID.
func (s *Store) AddEmployee(e model.Employee, branchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Branch = s.branchRef(branchID)
	s.employees = append(s.employees, employeeRow{emp: e, branchID: branchID})
}

// AddRecord stores an attendance record for employeeID at branchID. The
// employee snapshot on the record is filled from the employee when known.
func (s *Store) AddRecord(rec model.AttendanceRecord, branchID, employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	for _, e := range s.employees {
		if e.emp.ID == employeeID {
			if rec.Employee.Name == "" {
				rec.Employee.Name = e.emp.Name
			}
			if rec.Employee.MachineEmpID == nil {
				rec.Employee.MachineEmpID = e.emp.MachineEmpID
			}
		}
	}
	if rec.ApprovalStatus == "" {
		rec.ApprovalStatus = model.StatusPending
	}
	s.records = append(s.records, &attendanceRow{rec: rec, branchID: branchID, employeeID: employeeID})
}

// AddDevice registers a device. reachable decides its status on refresh.
func (s *Store) AddDevice(d model.Device, branchID string, createdAt time.Time, reachable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if branchID != "" {
		d.Branch = s.branchRef(branchID)
	}
	s.devices = append(s.devices, &deviceRow{dev: d, createdAt: createdAt, reachable: reachable})
}

// AddIDMSDevice adds an entry to the simulated iDMS inventory.
func (s *Store) AddIDMSDevice(d IDMSDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idms = append(s.idms, d)
}

// FailNext makes the next request matching method and path fail with status
// and message. Failures queue per route.
func (s *Store) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToUpper(method) + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, message: message})
}

func (s *Store) takeFailure(method, path string) (failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToUpper(method) + " " + path
	q := s.failures[key]
	if len(q) == 0 {
		return failure{}, false
	}
	s.failures[key] = q[1:]
	return q[0], true
}

// Branches lists branches with live employee and device counts.
func (s *Store) Branches() []model.Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		for _, e := range s.employees {
			if e.branchID == b.ID {
				b.EmployeeCount++
			}
		}
		for _, d := range s.devices {
			if ref := d.dev.AssignedBranch(); ref != nil && ref.ID == b.ID {
				b.DeviceCount++
			}
		}
		out = append(out, b)
	}
	return out
}

// AttendanceFilter is the server-side query of the attendance list.
type AttendanceFilter struct {
	BranchID string
	From     model.Day
	To       model.Day
	Status   model.ApprovalStatus
	Q        string
}

func (f AttendanceFilter) match(r *attendanceRow) bool {
	if f.BranchID != "" && r.branchID != f.BranchID {
		return false
	}
	if !f.From.IsZero() && r.rec.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(r.rec.Date) {
		return false
	}
	if f.Status != "" && r.rec.Status() != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		name := strings.ToLower(r.rec.Employee.Name)
		machine := ""
		if r.rec.Employee.MachineEmpID != nil {
			machine = strconv.Itoa(*r.rec.Employee.MachineEmpID)
		}
		if !strings.Contains(name, q) && !strings.Contains(machine, q) {
			return false
		}
	}
	return true
}

// Attendance returns one page of matching records, newest day first, and the
// total match count.
func (s *Store) Attendance(f AttendanceFilter, page, limit int) ([]model.AttendanceRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []model.AttendanceRecord
	for _, r := range s.records {
		if f.match(r) {
			matched = append(matched, r.rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Date.Time.Equal(b.Date.Time) {
			return b.Date.Before(a.Date)
		}
		if a.Employee.Name != b.Employee.Name {
			return a.Employee.Name < b.Employee.Name
		}
		return a.ID < b.ID
	})
	return paginate(matched, page, limit), len(matched)
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T{}, items[start:end]...)
}

// Record returns the record with id.
func (s *Store) Record(id string) (model.AttendanceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.rec.ID == id {
			return r.rec, true
		}
	}
	return model.AttendanceRecord{}, false
}

// SetApproval changes a record's status and returns the updated record.
func (s *Store) SetApproval(id string, status model.ApprovalStatus) (model.AttendanceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.rec.ID == id {
			r.rec.ApprovalStatus = status
			return r.rec, true
		}
	}
	return model.AttendanceRecord{}, false
}

// Employees lists every employee in registration order.
func (s *Store) Employees() []model.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e.emp)
	}
	return out
}

// Employee returns the employee with id.
func (s *Store) Employee(id string) (model.Employee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.employees {
		if e.emp.ID == id {
			return e.emp, true
		}
	}
	return model.Employee{}, false
}

// EmployeeAttendance lists an employee's records in [from, to], oldest first.
func (s *Store) EmployeeAttendance(id string, from, to model.Day) []model.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := AttendanceFilter{From: from, To: to}
	out := []model.AttendanceRecord{}
	for _, r := range s.records {
		if r.employeeID == id && f.match(r) {
			out = append(out, r.rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CountAttendance counts records in [from, to], optionally only those with a
// punch from deviceID.
func (s *Store) CountAttendance(from, to model.Day, deviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := AttendanceFilter{From: from, To: to}
	n := 0
	for _, r := range s.records {
		if !f.match(r) {
			continue
		}
		if deviceID == "" || punchedAt(r.rec, deviceID) {
			n++
		}
	}
	return n
}

func punchedAt(rec model.AttendanceRecord, serial string) bool {
	for _, l := range rec.Logs {
		if l.DeviceID != nil && *l.DeviceID == serial {
			return true
		}
	}
	return false
}

// DeviceFilter is the server-side query of the device list.
type DeviceFilter struct {
	Q        string
	Status   string
	BranchID string
	Order    string // "asc" or "desc" by creation time
}

func (f DeviceFilter) match(d model.Device) bool {
	if f.BranchID != "" {
		ref := d.AssignedBranch()
		if ref == nil || ref.ID != f.BranchID {
			return false
		}
	}
	if f.Status != "" && !strings.EqualFold(d.Status(), f.Status) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		fields := []string{d.Name, d.SerialNumber, d.Location}
		if d.Meta != nil {
			fields = append(fields, d.Meta.DeviceName)
		}
		hit := false
		for _, v := range fields {
			if strings.Contains(strings.ToLower(v), q) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Devices returns one page of matching devices and the total match count.
func (s *Store) Devices(f DeviceFilter, page, limit int) ([]model.Device, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*deviceRow
	for _, d := range s.devices {
		if f.match(d.dev) {
			rows = append(rows, d)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if f.Order == "asc" {
			return rows[i].createdAt.Before(rows[j].createdAt)
		}
		return rows[j].createdAt.Before(rows[i].createdAt)
	})
	out := make([]model.Device, len(rows))
	for i, r := range rows {
		out[i] = r.dev
	}
	return paginate(out, page, limit), len(out)
}

// Device returns the device with id.
func (s *Store) Device(id string) (model.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.findDevice(id); d != nil {
		return d.dev, true
	}
	return model.Device{}, false
}

func (s *Store) findDevice(id string) *deviceRow {
	for _, d := range s.devices {
		if d.dev.ID == id {
			return d
		}
	}
	return nil
}

// UpdateDevice sets a device's name and location.
func (s *Store) UpdateDevice(id, name, location string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDevice(id)
	if d == nil {
		return false
	}
	d.dev.Name, d.dev.Location = name, location
	return true
}

// AssignBranch moves a device to branchID. It reports whether both exist.
func (s *Store) AssignBranch(id, branchID string) (deviceFound, branchFound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDevice(id)
	if d == nil {
		return false, false
	}
	ref := s.branchRef(branchID)
	if ref == nil {
		return true, false
	}
	d.dev.Branch = ref
	d.dev.BranchAdmin = nil
	return true, true
}

// DeleteDevice removes a device.
func (s *Store) DeleteDevice(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.devices {
		if d.dev.ID == id {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			return true
		}
	}
	return false
}

// RefreshStatus re-derives every device's status from its reachability.
func (s *Store) RefreshStatus() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, d := range s.devices {
		if d.reachable {
			d.dev.LastKnownStatus = "Online"
			t := now
			d.dev.LastConnected = &t
		} else {
			d.dev.LastKnownStatus = "Offline"
		}
	}
	return len(s.devices)
}

// SyncFromIDMS registers every iDMS device not yet known by serial number and
// returns how many were added.
func (s *Store) SyncFromIDMS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := map[string]bool{}
	for _, d := range s.devices {
		known[d.dev.SerialNumber] = true
	}
	added := 0
	for _, in := range s.idms {
		if known[in.SerialNumber] {
			continue
		}
		s.devices = append(s.devices, &deviceRow{
			dev: model.Device{
				ID:              uuid.NewString(),
				SerialNumber:    in.SerialNumber,
				Location:        in.Location,
				LastKnownStatus: "Unknown",
				Meta:            &model.DeviceMeta{DeviceName: in.DeviceName},
			},
			createdAt: s.now().UTC(),
			reachable: in.Online,
		})
		known[in.SerialNumber] = true
		added++
	}
	return added
}

// IDMSDevices returns the simulated iDMS inventory.
func (s *Store) IDMSDevices() []IDMSDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]IDMSDevice{}, s.idms...)
}

// UnknownSerials returns the serials no registered device carries.
func (s *Store) UnknownSerials(serials []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := map[string]bool{}
	for _, d := range s.devices {
		known[d.dev.SerialNumber] = true
	}
	var out []string
	for _, sn := range serials {
		if !known[sn] {
			out = append(out, sn)
		}
	}
	return out
}

// AddCommand records a dispatched command as pending.
func (s *Store) AddCommand(typ model.CommandType, serials []string, params model.CommandParams) model.DeviceCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	cmd := model.DeviceCommand{
		ID:            uuid.NewString(),
		Type:          typ,
		SerialNumbers: append([]string{}, serials...),
		Params:        params,
		Status:        "pending",
		CreatedAt:     &now,
	}
	s.commands = append(s.commands, cmd)
	return cmd
}

// Commands lists recorded commands, newest first.
func (s *Store) Commands() []model.DeviceCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DeviceCommand, len(s.commands))
	for i, c := range s.commands {
		out[len(s.commands)-1-i] = c
	}
	return out
}
