package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/auth"
	"github.com/0xPratikag/clinicctl/internal/model"
)

func TestClientAttachesBearer(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":[{"_id":"r1","date":"2024-01-10T00:00:00.000Z","approvalStatus":"approved"}],"total":45}`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, auth.NewStatic("tok-1"))
	page, err := c.Attendance(context.Background(), api.AttendanceQuery{BranchID: "B1", Page: 2, Limit: 20})
	if err != nil {
		t.Fatalf("Attendance: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-1")
	}
	if gotQuery != "branchId=B1&limit=20&page=2" {
		t.Errorf("query = %q", gotQuery)
	}
	if page.Total != 45 || len(page.Data) != 1 || page.Data[0].Status() != model.StatusApproved {
		t.Errorf("page = %+v", page)
	}
}

func TestClientNotLoggedInSendsNothing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := api.New(srv.URL, auth.NewStatic(""))
	_, err := c.Branches(context.Background())
	if !errors.Is(err, api.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
	if got := api.UserMessage(err, "Failed to load branches"); got != auth.ErrNotLoggedIn.Error() {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/devices/d1":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Device not found"}`))
		case "/devices/d2":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"branchId required"}`))
		}
	}))
	defer srv.Close()
	c := api.New(srv.URL, auth.NewStatic("tok"))
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
		code int
	}{
		{"message field", func() error { return c.DeleteDevice(ctx, "d1") }, "Device not found", http.StatusNotFound},
		{"no json body", func() error { return c.DeleteDevice(ctx, "d2") }, "Failed to delete device", http.StatusBadGateway},
		{"error field", func() error { return c.AssignDeviceBranch(ctx, "d3", "") }, "branchId required", http.StatusBadRequest},
	}
	for _, tt := range tests {
		err := tt.call()
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if got := api.UserMessage(err, "Failed to delete device"); got != tt.want {
			t.Errorf("%s: UserMessage = %q, want %q", tt.name, got, tt.want)
		}
		if !api.IsStatus(err, tt.code) {
			t.Errorf("%s: IsStatus(%d) = false for %v", tt.name, tt.code, err)
		}
	}
}

func TestCommandsDecodesBothShapes(t *testing.T) {
	bodies := []string{
		`[{"_id":"c1","type":"pullLogs","serialNumbers":["S1"],"status":"pending"}]`,
		`{"data":[{"_id":"c1","type":"pullLogs","serialNumbers":["S1"],"status":"pending"}]}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := api.New(srv.URL, auth.NewStatic("tok"))
		cmds, err := c.Commands(context.Background())
		srv.Close()
		if err != nil {
			t.Fatalf("Commands(%s): %v", body, err)
		}
		if len(cmds) != 1 || cmds[0].Type != model.CommandPullLogs || cmds[0].SerialNumbers[0] != "S1" {
			t.Errorf("Commands(%s) = %+v", body, cmds)
		}
	}
}

func TestBranchesToleratesNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()
	c := api.New(srv.URL, auth.NewStatic("tok"))
	branches, err := c.Branches(context.Background())
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if branches == nil || len(branches) != 0 {
		t.Errorf("Branches = %#v, want empty non-nil slice", branches)
	}
}

func TestPullLogsBody(t *testing.T) {
	var got model.PullLogsRequest
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := api.New(srv.URL+"/", auth.NewStatic("tok"))
	req := model.PullLogsRequest{SerialNumbers: []string{"S1", "S2"}, From: "2024-01-10 00:00", To: "2024-01-10 23:59"}
	if err := c.PullLogs(context.Background(), req); err != nil {
		t.Fatalf("PullLogs: %v", err)
	}
	if method != http.MethodPost || path != "/devices/pull-logs" {
		t.Errorf("request = %s %s", method, path)
	}
	if strings.Join(got.SerialNumbers, ",") != "S1,S2" || got.From != req.From || got.To != req.To {
		t.Errorf("body = %+v", got)
	}
}

func TestIDPathEscaping(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"logs":null}`))
	}))
	defer srv.Close()
	c := api.New(srv.URL, auth.NewStatic("tok"))
	logs, err := c.AttendanceLogs(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("AttendanceLogs: %v", err)
	}
	if raw != "/attendance/a%2Fb/logs" {
		t.Errorf("path = %q", raw)
	}
	if logs == nil {
		t.Error("AttendanceLogs returned nil slice for null logs")
	}
}
