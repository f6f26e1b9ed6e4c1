package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/auth"
	"github.com/0xPratikag/clinicctl/internal/config"
	"github.com/0xPratikag/clinicctl/internal/device"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/sandbox"
	"github.com/0xPratikag/clinicctl/internal/storage"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"usage", usagef("bad flag"), 1},
		{"validation", &attendance.ValidationError{Field: "from", Message: "date is required"}, 1},
		{"field", &device.FieldError{Field: "dateTime"}, 1},
		{"not logged in", shown(fmt.Errorf("GET /devices: %w", auth.ErrNotLoggedIn)), 1},
		{"expired", auth.ErrExpired, 1},
		{"no devices", shown(device.ErrNoDevices), 1},
		{"noop", attendance.ErrNoop, 1},
		{"unauthorized", shown(&api.Error{Method: "GET", Path: "/devices", Status: http.StatusUnauthorized}), 1},
		{"server", shown(&api.Error{Method: "GET", Path: "/devices", Status: http.StatusInternalServerError}), 2},
		{"io", errors.New("disk full"), 2},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestParseDay(t *testing.T) {
	def, _ := model.ParseDay("2024-01-01")
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"", "2024-01-01", false},
		{"  ", "2024-01-01", false},
		{"2024-02-29", "2024-02-29", false},
		{"29/02/2024", "", true},
		{"2024-13-01", "", true},
	}
	for _, tt := range tests {
		got, err := parseDay("from", tt.value, def)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDay(%q) err = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("parseDay(%q) = %s, want %s", tt.value, got, tt.want)
		}
		if err != nil && exitCode(err) != 1 {
			t.Errorf("parseDay(%q) error exits %d", tt.value, exitCode(err))
		}
	}
}

func TestAttendanceTable(t *testing.T) {
	in := time.Date(2024, 1, 10, 9, 2, 0, 0, time.Local)
	emp := 101
	tbl := attendanceTable([]model.AttendanceRecord{
		{ID: "R1", Date: model.NewDay(in), Employee: model.EmployeeRef{Name: "Asha Rao", MachineEmpID: &emp}, FirstIn: &in, TotalMinutes: 548},
		{ID: "R9", Date: model.NewDay(in), ApprovalStatus: "weird"},
	})
	want := [][]string{
		{"R1", "2024-01-10", "Asha Rao", "101", "09:02", "--", "9h 8m", "PENDING"},
		{"R9", "2024-01-10", "", "--", "--", "--", "0m", "PENDING"},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("rows = %q\nwant %q", tbl.Rows, want)
	}
}

func TestCommandTable(t *testing.T) {
	tbl := commandTable([]model.DeviceCommand{
		{ID: "C1", Type: model.CommandPullLogs, SerialNumbers: []string{"A", "B"}, Params: model.CommandParams{From: "2024-01-10 00:00", To: "2024-01-10 23:59"}, Status: "pending"},
		{ID: "C2", Type: model.CommandSyncTime, SerialNumbers: []string{"A"}, Params: model.CommandParams{DateTime: "2024-01-10T10:00:00"}, Status: "done"},
	})
	if got := tbl.Rows[0][3]; got != "2024-01-10 00:00 to 2024-01-10 23:59" {
		t.Errorf("pullLogs params = %q", got)
	}
	if got := tbl.Rows[0][2]; got != "A, B" {
		t.Errorf("devices = %q", got)
	}
	if got := tbl.Rows[1][3]; got != "2024-01-10T10:00:00" {
		t.Errorf("syncTime params = %q", got)
	}
}

// requestLog collects "METHOD /path?query" for every request the backend sees.
type requestLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *requestLog) wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.seen = append(l.seen, r.Method+" "+r.URL.RequestURI())
		l.mu.Unlock()
		h.ServeHTTP(w, r)
	})
}

func (l *requestLog) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.seen...)
}

// backend starts a seeded sandbox and points a fresh state directory at it.
func backend(t *testing.T) *sandbox.Store {
	store, _ := recordingBackend(t)
	return store
}

func recordingBackend(t *testing.T) (*sandbox.Store, *requestLog) {
	t.Helper()
	store := sandbox.NewStore()
	sandbox.Seed(store)
	reqs := &requestLog{}
	ts := httptest.NewServer(reqs.wrap(sandbox.New(store, sandbox.Options{})))
	t.Cleanup(ts.Close)
	t.Setenv(storage.HomeEnv, t.TempDir())
	t.Setenv(config.EnvBaseURL, ts.URL)
	t.Setenv(config.EnvLoginURL, "")
	return store, reqs
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	flagNoColor = true
	rootCmd.SetArgs(append(args, "--no-color"))
	return rootCmd.ExecuteContext(context.Background())
}

func login(t *testing.T) {
	t.Helper()
	if err := execute(t, "login", "--email", sandbox.DemoEmail, "--password", sandbox.DemoPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLoginLogout(t *testing.T) {
	backend(t)
	base, _ := storage.BaseDir()

	err := execute(t, "login", "--email", sandbox.DemoEmail, "--password", "wrong")
	if err == nil {
		t.Fatal("login with a wrong password succeeded")
	}
	if exitCode(err) != 1 {
		t.Errorf("wrong password exits %d, want 1", exitCode(err))
	}
	login(t)
	if _, err := os.Stat(auth.TokenFilePath(base)); err != nil {
		t.Fatalf("token not stored: %v", err)
	}
	if err := execute(t, "branches"); err != nil {
		t.Errorf("branches after login: %v", err)
	}

	if err := execute(t, "logout"); err != nil {
		t.Fatal(err)
	}
	err = execute(t, "branches")
	if !errors.Is(err, auth.ErrNotLoggedIn) || exitCode(err) != 1 {
		t.Errorf("branches after logout = %v (exit %d)", err, exitCode(err))
	}
}

func TestApproveCommand(t *testing.T) {
	store := backend(t)
	login(t)

	view := []string{"--branch", "B1", "--from", "2024-01-10", "--to", "2024-01-12"}
	if err := execute(t, append([]string{"attendance", "approve", "R1"}, view...)...); err != nil {
		t.Fatal(err)
	}
	if rec, _ := store.Record("R1"); rec.Status() != model.StatusApproved {
		t.Errorf("R1 = %s, want approved", rec.Status())
	}
	// Already approved: reported, not an error.
	if err := execute(t, append([]string{"attendance", "approve", "R1"}, view...)...); err != nil {
		t.Errorf("repeat approve: %v", err)
	}
	if err := execute(t, append([]string{"attendance", "reset", "R1", "R3"}, view...)...); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"R1", "R3"} {
		if rec, _ := store.Record(id); rec.Status() != model.StatusPending {
			t.Errorf("%s = %s, want pending", id, rec.Status())
		}
	}

	err := execute(t, "attendance", "reject", "R1", "--branch", "B1", "--from", "2024-01-12", "--to", "2024-01-10")
	if exitCode(err) != 1 {
		t.Errorf("reversed range = %v (exit %d)", err, exitCode(err))
	}
}

func TestExportCommand(t *testing.T) {
	backend(t)
	login(t)
	dir := t.TempDir()

	if err := execute(t, "attendance", "export", "csv", "--branch", "B1", "--from", "2024-01-10", "--to", "2024-01-12", "--dir", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Mumbai_HQ_attendance_2024-01-10_to_2024-01-12.csv")); err != nil {
		t.Errorf("report not written: %v", err)
	}
	if err := execute(t, "attendance", "export", "docx", "--branch", "B1"); exitCode(err) != 1 {
		t.Errorf("unknown format = %v", err)
	}
}

func TestSelectAndDispatch(t *testing.T) {
	store := backend(t)
	login(t)
	base, _ := storage.BaseDir()

	if err := execute(t, "devices", "select", "D1", "MUM-PK-01", "D2"); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "devices", "deselect", "MUM-REC-01"); err != nil {
		t.Fatal(err)
	}
	saved, err := storage.LoadSelection(base)
	if err != nil {
		t.Fatal(err)
	}
	if got := device.NewSelection(saved...).SerialNumbers(); !reflect.DeepEqual(got, []string{"MUM-GATE-01", "MUM-PK-01"}) {
		t.Fatalf("saved selection = %v", got)
	}

	if err := execute(t, "devices", "pull-logs", "--from", "2024-01-10 00:00", "--to", "2024-01-10 23:59"); err != nil {
		t.Fatal(err)
	}
	cmds := store.Commands()
	if len(cmds) != 1 || !reflect.DeepEqual(cmds[0].SerialNumbers, []string{"MUM-GATE-01", "MUM-PK-01"}) {
		t.Fatalf("commands = %+v", cmds)
	}

	if err := execute(t, "devices", "sync-time", "--device", "PUN-GATE-01", "--at", "2024-01-10T10:00:00"); err != nil {
		t.Fatal(err)
	}
	if cmds := store.Commands(); len(cmds) != 2 || !reflect.DeepEqual(cmds[0].SerialNumbers, []string{"PUN-GATE-01"}) {
		t.Errorf("quick action commands = %+v", cmds)
	}

	if err := execute(t, "devices", "clear"); err != nil {
		t.Fatal(err)
	}
	err = execute(t, "devices", "pull-logs")
	if !errors.Is(err, device.ErrNoDevices) || exitCode(err) != 1 {
		t.Errorf("empty selection = %v (exit %d)", err, exitCode(err))
	}
	if n := len(store.Commands()); n != 2 {
		t.Errorf("empty selection recorded a command (%d total)", n)
	}
}

func TestEditCommandPartialFailure(t *testing.T) {
	store := backend(t)
	login(t)

	store.FailNext(http.MethodPatch, "/devices/D1/assign-branch", http.StatusInternalServerError, "")
	err := execute(t, "devices", "edit", "D1", "--name", "Front Gate", "--branch", "B2")
	if err == nil || exitCode(err) != 2 {
		t.Fatalf("edit = %v (exit %d)", err, exitCode(err))
	}
	d, _ := store.Device("D1")
	if d.Name != "Front Gate" || d.Location != "Ground floor" || d.AssignedBranch().ID != "B1" {
		t.Errorf("device = %+v", d)
	}
}

func TestEmployeeDefaultsToCurrentMonth(t *testing.T) {
	_, reqs := recordingBackend(t)
	login(t)

	if err := execute(t, "employee", "E1"); err != nil {
		t.Fatal(err)
	}
	first, last := timecalc.MonthRange(time.Now())
	want := "GET /employees/E1/attendance?from=" + first.String() + "&to=" + last.String()
	if !contains(reqs.lines(), want) {
		t.Errorf("requests = %q, want %q", reqs.lines(), want)
	}

	if err := execute(t, "employee", "E1", "--from", "2024-01-01", "--to", "2024-01-31"); err != nil {
		t.Fatal(err)
	}
	if want := "GET /employees/E1/attendance?from=2024-01-01&to=2024-01-31"; !contains(reqs.lines(), want) {
		t.Errorf("requests = %q, want %q", reqs.lines(), want)
	}
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestEmployeesCommand(t *testing.T) {
	_, reqs := recordingBackend(t)
	login(t)

	if err := execute(t, "employees", "--query", "pune"); err != nil {
		t.Fatal(err)
	}
	if !contains(reqs.lines(), "GET /employees") {
		t.Errorf("requests = %q", reqs.lines())
	}
}

func TestEmployeeTable(t *testing.T) {
	machine := 201
	tbl := employeeTable([]model.Employee{
		{ID: "E4", EmployeeID: "PUN-001", Name: "Rohan Kulkarni", MachineEmpID: &machine, Branch: &model.BranchRef{ID: "B2", Name: "Pune East"}},
		{ID: "E9", Name: "Unmapped", IsActive: true},
	})
	want := [][]string{
		{"E4", "PUN-001", "Rohan Kulkarni", "201", "Pune East", "Inactive"},
		{"E9", "", "Unmapped", "--", "--", "Active"},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("rows = %q\nwant %q", tbl.Rows, want)
	}
}

func TestDotEnvSetsStateDirectory(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(storage.HomeEnv+"="+state+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", filepath.Join(dir, "home"))
	// Registered so the value .env sets is undone after the test.
	t.Setenv(storage.HomeEnv, "")
	os.Unsetenv(storage.HomeEnv)
	resetFlags(rootCmd)

	s, err := openSession()
	if err != nil {
		t.Fatal(err)
	}
	if s.base != state {
		t.Errorf("state directory = %s, want %s", s.base, state)
	}
	if _, err := os.Stat(config.FilePath(state)); err != nil {
		t.Errorf("config not created under .env state directory: %v", err)
	}
}

func TestBaseURLFlagIsValidated(t *testing.T) {
	_, reqs := recordingBackend(t)
	login(t)
	before := len(reqs.lines())

	err := execute(t, "--base-url", "not a url", "branches")
	if err == nil || exitCode(err) != 1 {
		t.Errorf("malformed --base-url = %v (exit %d)", err, exitCode(err))
	}
	if n := len(reqs.lines()); n != before {
		t.Errorf("malformed --base-url sent %d request(s)", n-before)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	store := backend(t)
	login(t)
	defer func(r io.Reader) { confirmIn = r }(confirmIn)

	confirmIn = strings.NewReader("n\n")
	if err := execute(t, "devices", "delete", "D4"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Device("D4"); !ok {
		t.Fatal("declined delete removed the device")
	}

	confirmIn = strings.NewReader("yes\n")
	if err := execute(t, "devices", "delete", "D4"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Device("D4"); ok {
		t.Error("confirmed delete kept the device")
	}

	confirmIn = strings.NewReader("")
	if err := execute(t, "devices", "delete", "MUM-REC-01", "--yes"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Device("D2"); ok {
		t.Error("--yes delete kept the device")
	}
}
