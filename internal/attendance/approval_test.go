package attendance_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.ApprovalStatus
		want     bool
	}{
		{model.StatusPending, model.StatusApproved, true},
		{model.StatusApproved, model.StatusRejected, true},
		{model.StatusRejected, model.StatusPending, true},
		{model.StatusApproved, model.StatusApproved, false},
		{"", model.StatusPending, false},
		{model.StatusPending, "maybe", false},
	}
	for _, tt := range tests {
		if got := attendance.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestApprovalRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := mumbaiView(t, e, "")
	if err := v.Open(ctx); err != nil {
		t.Fatal(err)
	}
	a := attendance.NewApprovals(e.client, v, e.toasts)

	for _, step := range []struct{ from, to model.ApprovalStatus }{
		{model.StatusPending, model.StatusApproved},
		{model.StatusApproved, model.StatusPending},
		{model.StatusPending, model.StatusApproved},
	} {
		tr, err := a.Set(ctx, "R1", step.to)
		if err != nil {
			t.Fatalf("%s -> %s: %v", step.from, step.to, err)
		}
		if tr.From != step.from {
			t.Errorf("%s -> %s: From = %s", step.from, step.to, tr.From)
		}
		if row, _ := v.Row("R1"); row.Status() != step.to {
			t.Errorf("row after %s -> %s shows %s", step.from, step.to, row.Status())
		}
		if rec, _ := e.store.Record("R1"); rec.Status() != step.to {
			t.Errorf("server after %s -> %s holds %s", step.from, step.to, rec.Status())
		}
	}
	if n := e.toasts.Count(notify.LevelSuccess); n != 3 {
		t.Errorf("success toasts = %d, want 3", n)
	}
}

func TestApprovalFailureReloads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := mumbaiView(t, e, "")
	if err := v.Open(ctx); err != nil {
		t.Fatal(err)
	}
	a := attendance.NewApprovals(e.client, v, e.toasts)

	if _, err := a.Set(ctx, "R1", model.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Set(ctx, "R1", model.StatusPending); err != nil {
		t.Fatal(err)
	}
	e.store.FailNext(http.MethodPatch, "/attendance/R1/approval", http.StatusInternalServerError, "")
	tr, err := a.Set(ctx, "R1", model.StatusApproved)
	if err == nil || !tr.Reloaded {
		t.Fatalf("failed set = %+v, %v", tr, err)
	}
	if row, _ := v.Row("R1"); row.Status() != model.StatusPending {
		t.Errorf("row after failed set = %s, want server value pending", row.Status())
	}

	var sawError bool
	for _, toast := range e.toasts.Toasts() {
		if toast.Level == notify.LevelError && toast.Message == "Failed to update status" {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("toasts = %+v", e.toasts.Toasts())
	}
}

func TestApprovalNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := mumbaiView(t, e, "")
	if err := v.Open(ctx); err != nil {
		t.Fatal(err)
	}
	n := len(e.requests())

	a := attendance.NewApprovals(e.client, v, e.toasts)
	if _, err := a.Set(ctx, "R2", model.StatusApproved); !errors.Is(err, attendance.ErrNoop) {
		t.Errorf("approving an approved record = %v, want ErrNoop", err)
	}
	var verr *attendance.ValidationError
	if _, err := a.Set(ctx, "R2", "maybe"); !errors.As(err, &verr) {
		t.Errorf("invalid status = %v, want ValidationError", err)
	}
	if len(e.requests()) != n {
		t.Errorf("rejected transitions made requests: %v", e.requests()[n:])
	}
}

func TestApprovalOffPageRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := mumbaiView(t, e, model.StatusApproved)
	if err := v.Open(ctx); err != nil {
		t.Fatal(err)
	}
	a := attendance.NewApprovals(e.client, v, e.toasts)
	tr, err := a.Set(ctx, "R3", model.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if tr.From != "" {
		t.Errorf("From = %q for a record off the page", tr.From)
	}
	if rec, _ := e.store.Record("R3"); rec.Status() != model.StatusPending {
		t.Errorf("server holds %s", rec.Status())
	}
}

func TestLogViewer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := mumbaiView(t, e, model.StatusPending)
	if err := v.Open(ctx); err != nil {
		t.Fatal(err)
	}
	rec, ok := v.Row("R1")
	if !ok {
		t.Fatal("R1 not loaded")
	}
	lv := attendance.NewLogViewer(e.client)

	var states []attendance.Logs
	final := lv.Open(ctx, rec, func(l attendance.Logs) { states = append(states, l) })
	if len(states) != 2 || !states[0].Loading || states[1].Loading {
		t.Fatalf("states = %+v", states)
	}
	if final.Title != "Asha Rao • 2024-01-10" || final.Stale || len(final.Events) != 2 {
		t.Errorf("final = %+v", final)
	}
	if final.Events[0].Type != model.PunchIn || !final.Events[0].Time.Before(final.Events[1].Time) {
		t.Errorf("events not chronological: %+v", final.Events)
	}

	e.store.FailNext(http.MethodGet, "/attendance/R1/logs", http.StatusInternalServerError, "boom")
	final = lv.Open(ctx, rec, nil)
	if !final.Stale || len(final.Events) != len(rec.Logs) {
		t.Errorf("soft-failed fetch = %+v", final)
	}
	if n := e.toasts.Count(notify.LevelError); n != 0 {
		t.Errorf("log fetch failure raised %d error toasts", n)
	}
}

func TestSyncFromIDMS(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := attendance.SyncFromIDMS(ctx, e.client, e.toasts, day(t, "2024-01-10"), day(t, "2024-01-12"), " MUM-GATE-01 ")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		DeviceID string `json:"deviceId"`
		Records  int    `json:"records"`
	}
	if err := json.Unmarshal(res, &body); err != nil {
		t.Fatal(err)
	}
	if body.DeviceID != "MUM-GATE-01" || body.Records != 3 {
		t.Errorf("sync result = %+v", body)
	}
	if last, _ := e.toasts.Last(); last.Message != "Attendance sync started / completed" {
		t.Errorf("toast = %+v", last)
	}

	n := len(e.requests())
	if _, err := attendance.SyncFromIDMS(ctx, e.client, e.toasts, model.Day{}, day(t, "2024-01-12"), ""); err == nil {
		t.Error("missing from accepted")
	}
	if last, _ := e.toasts.Last(); last.Level != notify.LevelWarn || last.Message != "From & To dates required" {
		t.Errorf("toast = %+v", last)
	}
	if len(e.requests()) != n {
		t.Error("invalid sync made a request")
	}
}

func TestEmployeeAttendance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	from, to := day(t, "2024-01-01"), day(t, "2024-01-31")

	s, err := attendance.EmployeeAttendance(ctx, e.client, e.toasts, "E1", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if s.Employee == nil || s.Employee.Name != "Asha Rao" || s.Days != 1 || s.RangeDays != 31 || s.TotalMinutes != 548 {
		t.Errorf("summary = %+v", s)
	}

	e.store.FailNext(http.MethodGet, "/employees/E1", http.StatusInternalServerError, "")
	s, err = attendance.EmployeeAttendance(ctx, e.client, e.toasts, "E1", from, to)
	if err != nil || s.Employee != nil || s.Days != 1 {
		t.Errorf("with failed lookup: %+v, %v", s, err)
	}

	if _, err := attendance.EmployeeAttendance(ctx, e.client, e.toasts, "NOPE", from, to); err == nil {
		t.Error("unknown employee succeeded")
	}
}

func TestEmployees(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		filter attendance.EmployeeFilter
		want   []string
	}{
		{attendance.EmployeeFilter{Query: "asha"}, []string{"E1"}},
		{attendance.EmployeeFilter{Query: "mum-"}, []string{"E1", "E2", "E3"}},
		{attendance.EmployeeFilter{Query: "PUNE"}, []string{"E4"}},
		{attendance.EmployeeFilter{BranchID: "B1", Query: "neha"}, []string{"E3"}},
		{attendance.EmployeeFilter{BranchID: "B2"}, []string{"E4"}},
		{attendance.EmployeeFilter{Query: "nobody"}, []string{}},
	}
	for _, tt := range tests {
		got, err := attendance.Employees(ctx, e.client, e.toasts, tt.filter)
		if err != nil {
			t.Fatal(err)
		}
		ids := []string{}
		for _, emp := range got {
			ids = append(ids, emp.ID)
		}
		if !reflect.DeepEqual(ids, tt.want) {
			t.Errorf("Employees(%+v) = %v, want %v", tt.filter, ids, tt.want)
		}
	}
	if all, _ := attendance.Employees(ctx, e.client, e.toasts, attendance.EmployeeFilter{}); len(all) != 49 {
		t.Errorf("unfiltered = %d employees, want 49", len(all))
	}

	e.store.FailNext(http.MethodGet, "/employees", http.StatusServiceUnavailable, "")
	got, err := attendance.Employees(ctx, e.client, e.toasts, attendance.EmployeeFilter{})
	if err == nil || len(got) != 0 {
		t.Errorf("failed load = %v, %v", got, err)
	}
	if last, _ := e.toasts.Last(); last.Message != "Failed to load employees" {
		t.Errorf("toast = %+v", last)
	}
}
