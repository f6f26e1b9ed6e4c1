package attendance_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

var generated = time.Date(2024, 1, 13, 10, 30, 0, 0, time.UTC)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Mumbai HQ", "Mumbai_HQ"},
		{"  Pune / East (2) ", "Pune_East_2"},
		{"", "branch"},
		{strings.Repeat("a", 50), strings.Repeat("a", 40)},
	}
	for _, tt := range tests {
		if got := attendance.SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	f := attendance.Filters{From: day(t, "2024-01-10"), To: day(t, "2024-01-12")}
	if got := attendance.FileName("Mumbai HQ", f, attendance.ExportPDF); got != "Mumbai_HQ_attendance_2024-01-10_to_2024-01-12.pdf" {
		t.Errorf("FileName = %q", got)
	}
}

func TestParseExportFormat(t *testing.T) {
	for _, in := range []string{"pdf", " XLSX ", "csv"} {
		if _, err := attendance.ParseExportFormat(in); err != nil {
			t.Errorf("ParseExportFormat(%q): %v", in, err)
		}
	}
	if _, err := attendance.ParseExportFormat("docx"); err == nil {
		t.Error("docx accepted")
	}
}

func openMumbai(t *testing.T, e *env) *attendance.View {
	t.Helper()
	v := mumbaiView(t, e, "")
	if err := v.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	ex := attendance.NewExporter(e.client, e.toasts, 0, 0)

	path, err := ex.Export(context.Background(), openMumbai(t, e), dir, attendance.ExportCSV, generated)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Mumbai_HQ_attendance_2024-01-10_to_2024-01-12.csv" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"Date,Employee,Emp ID,First In,Last Out,Minutes,Status",
		"2024-01-12,Neha Iyer,103,10:15,14:00,225,REJECTED",
		"2024-01-11,Vikram Shah,102,08:55,17:30,515,APPROVED",
		"2024-01-10,Asha Rao,101,09:02,18:10,548,PENDING",
	}
	if len(lines) != len(want) {
		t.Fatalf("csv lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if last, _ := e.toasts.Last(); last.Message != "Exported 3 row(s) to CSV" {
		t.Errorf("toast = %+v", last)
	}
}

func TestExportPDF(t *testing.T) {
	e := newEnv(t)
	ex := attendance.NewExporter(e.client, e.toasts, 0, 0)
	path, err := ex.Export(context.Background(), openMumbai(t, e), t.TempDir(), attendance.ExportPDF, generated)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("not a PDF: %q", data[:16])
	}
}

func TestExportXLSX(t *testing.T) {
	e := newEnv(t)
	ex := attendance.NewExporter(e.client, e.toasts, 0, 0)
	path, err := ex.Export(context.Background(), openMumbai(t, e), t.TempDir(), attendance.ExportXLSX, generated)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[0][0] != "Date" || rows[1][1] != "Neha Iyer" || rows[3][5] != "548" {
		t.Errorf("rows = %q", rows)
	}
}

func TestExportEmpty(t *testing.T) {
	e := newEnv(t)
	f := attendance.Filters{From: day(t, "2024-01-10"), To: day(t, "2024-01-12")}
	v, err := attendance.NewView(e.client, e.toasts, "B2", "Pune East", f, 20)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path, err := attendance.NewExporter(e.client, e.toasts, 0, 0).Export(context.Background(), v, dir, attendance.ExportPDF, generated)
	if err != nil || path != "" {
		t.Fatalf("Export = %q, %v", path, err)
	}
	if last, _ := e.toasts.Last(); last.Level != notify.LevelInfo || last.Message != "No data to export for current filters." {
		t.Errorf("toast = %+v", last)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("empty export wrote %d file(s)", len(entries))
	}
}

func TestExportFailure(t *testing.T) {
	e := newEnv(t)
	v := openMumbai(t, e)
	e.store.FailNext(http.MethodGet, "/attendance", http.StatusInternalServerError, "")
	dir := t.TempDir()
	if _, err := attendance.NewExporter(e.client, e.toasts, 0, 0).Export(context.Background(), v, dir, attendance.ExportPDF, generated); err == nil {
		t.Fatal("expected failure")
	}
	if last, _ := e.toasts.Last(); last.Level != notify.LevelError || last.Message != "Failed to export PDF" {
		t.Errorf("toast = %+v", last)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("failed export wrote %d file(s)", len(entries))
	}
}

func TestCollectPaging(t *testing.T) {
	f := attendance.Filters{From: day(t, "2024-01-15"), To: day(t, "2024-01-15")}
	tests := []struct {
		name               string
		pageLimit, maxRows int
		wantRows, wantReqs int
		truncated          bool
	}{
		{"all pages", 20, 100, 45, 3, false},
		{"exact cap", 20, 45, 45, 3, false},
		{"capped", 20, 30, 30, 2, true},
		{"single page", 500, 5000, 45, 1, false},
	}
	for _, tt := range tests {
		e := newEnv(t)
		r, err := attendance.NewExporter(e.client, e.toasts, tt.pageLimit, tt.maxRows).Collect(context.Background(), "B3", "Delhi Clinic", f)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(r.Rows) != tt.wantRows || r.Truncated != tt.truncated || r.ServerTotal != 45 {
			t.Errorf("%s: rows=%d truncated=%v total=%d", tt.name, len(r.Rows), r.Truncated, r.ServerTotal)
		}
		if n := len(e.requests()); n != tt.wantReqs {
			t.Errorf("%s: %d requests, want %d", tt.name, n, tt.wantReqs)
		}
	}
}

func TestWriteReportCapNote(t *testing.T) {
	r := attendance.Report{
		BranchName: "Delhi Clinic",
		Filters:    attendance.Filters{From: day(t, "2024-01-15"), To: day(t, "2024-01-15")},
		Rows:       []model.AttendanceRecord{{ID: "x", Date: day(t, "2024-01-15")}},
		Truncated:  true,
		MaxRows:    1,
	}
	var buf bytes.Buffer
	if err := attendance.WriteReport(&buf, attendance.ExportXLSX, r); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	note, err := f.GetCellValue("Attendance", "A4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(note, "NOTE: Export capped at 1 rows") {
		t.Errorf("note = %q", note)
	}
}
