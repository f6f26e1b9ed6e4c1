package attendance

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/storage"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

// Export bounds.
const (
	ExportPageLimit = 500
	ExportMaxRows   = 5000
)

// ExportFormat is the file type of an export.
type ExportFormat string

const (
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts pdf, xlsx or csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case ExportPDF, ExportXLSX, ExportCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want pdf, xlsx or csv)", s)
}

// Report is every row matching a filter set, ready to be written.
type Report struct {
	BranchName  string
	Filters     Filters
	Rows        []model.AttendanceRecord
	ServerTotal int
	Truncated   bool
	MaxRows     int
	GeneratedAt time.Time
}

// Exporter walks a filter set page by page and writes the result to a file.
type Exporter struct {
	client    *api.Client
	notify    notify.Notifier
	pageLimit int
	maxRows   int
}

// NewExporter returns an Exporter; non-positive bounds take the defaults.
func NewExporter(client *api.Client, n notify.Notifier, pageLimit, maxRows int) *Exporter {
	if pageLimit <= 0 {
		pageLimit = ExportPageLimit
	}
	if maxRows <= 0 {
		maxRows = ExportMaxRows
	}
	return &Exporter{client: client, notify: n, pageLimit: pageLimit, maxRows: maxRows}
}

// Collect fetches every row for branchID under f, stopping at the server
// total or at the row cap, whichever comes first.
func (e *Exporter) Collect(ctx context.Context, branchID, branchName string, f Filters) (Report, error) {
	r := Report{BranchName: branchName, Filters: f, MaxRows: e.maxRows, Rows: []model.AttendanceRecord{}}
	maxPages := (e.maxRows + e.pageLimit - 1) / e.pageLimit
	for p := 1; p <= maxPages; p++ {
		res, err := e.client.Attendance(ctx, api.AttendanceQuery{
			BranchID: branchID,
			From:     f.From,
			To:       f.To,
			Status:   f.Status,
			Q:        strings.TrimSpace(f.Query),
			Page:     p,
			Limit:    e.pageLimit,
		})
		if err != nil {
			return r, err
		}
		if res.Total > 0 {
			r.ServerTotal = res.Total
		}
		if len(res.Data) == 0 {
			break
		}
		r.Rows = append(r.Rows, res.Data...)
		if len(r.Rows) >= r.ServerTotal {
			break
		}
		if len(r.Rows) >= e.maxRows {
			r.Truncated = true
			r.Rows = r.Rows[:e.maxRows]
			break
		}
	}
	return r, nil
}

// Export collects the view's applied filters and writes a report into dir.
// It returns the written path, or "" when nothing matched.
func (e *Exporter) Export(ctx context.Context, v *View, dir string, format ExportFormat, now time.Time) (string, error) {
	f := v.Applied()
	r, err := e.Collect(ctx, v.BranchID(), v.BranchName(), f)
	if err != nil {
		e.notify.Error(api.UserMessage(err, fmt.Sprintf("Failed to export %s", strings.ToUpper(string(format)))))
		return "", err
	}
	if len(r.Rows) == 0 {
		e.notify.Info("No data to export for current filters.")
		return "", nil
	}
	r.GeneratedAt = now

	path := filepath.Join(dir, FileName(v.BranchName(), f, format))
	if err := storage.WriteFile(path, func(w io.Writer) error { return WriteReport(w, format, r) }); err != nil {
		e.notify.Error(fmt.Sprintf("Failed to export %s", strings.ToUpper(string(format))))
		return "", err
	}
	msg := fmt.Sprintf("Exported %d row(s) to %s", len(r.Rows), strings.ToUpper(string(format)))
	if r.Truncated {
		msg = fmt.Sprintf("Exported %d row(s) (capped) to %s", len(r.Rows), strings.ToUpper(string(format)))
	}
	e.notify.Success(msg)
	return path, nil
}

var unsafeRun = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SafeName reduces a branch name to [A-Za-z0-9_], at most 40 characters.
func SafeName(name string) string {
	if name == "" {
		name = "branch"
	}
	s := strings.Trim(unsafeRun.ReplaceAllString(name, "_"), "_")
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// FileName is <safe branch>_attendance_<from>_to_<to>.<ext>.
func FileName(branchName string, f Filters, format ExportFormat) string {
	return fmt.Sprintf("%s_attendance_%s_to_%s.%s", SafeName(branchName), f.From, f.To, format)
}

var reportHeaders = []string{"Date", "Employee", "Emp ID", "First In", "Last Out", "Minutes", "Status"}

func reportRow(r model.AttendanceRecord) []string {
	name := r.Employee.Name
	if name == "" {
		name = "—"
	}
	empID := "—"
	if r.Employee.MachineEmpID != nil {
		empID = strconv.Itoa(*r.Employee.MachineEmpID)
	}
	return []string{
		r.Date.String(),
		name,
		empID,
		timecalc.FormatClock(r.FirstIn),
		timecalc.FormatClock(r.LastOut),
		strconv.Itoa(r.TotalMinutes),
		strings.ToUpper(string(r.Status())),
	}
}

func (r Report) capNote() string {
	total := "—"
	if r.ServerTotal > 0 {
		total = strconv.Itoa(r.ServerTotal)
	}
	return fmt.Sprintf("NOTE: Export capped at %d rows (filtered total reported by server: %s).", r.MaxRows, total)
}

// WriteReport writes r in format to w.
func WriteReport(w io.Writer, format ExportFormat, r Report) error {
	switch format {
	case ExportPDF:
		return writePDF(w, r)
	case ExportXLSX:
		return writeXLSX(w, r)
	case ExportCSV:
		t := output.Table{Headers: reportHeaders}
		for _, rec := range r.Rows {
			t.Rows = append(t.Rows, reportRow(rec))
		}
		return output.WriteCSV(w, t)
	}
	return fmt.Errorf("unknown export format %q", format)
}

var pdfColumns = []float64{80, 220, 80, 80, 80, 80, 142}

func writePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("L", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(40, 40, 40)
	pdf.SetAutoPageBreak(false, 40)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-30)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 12, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		for i, h := range reportHeaders {
			pdf.CellFormat(pdfColumns[i], 18, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 20, tr(r.BranchName+" • Attendance"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	sub := r.Filters.Summary() + "   •   Generated: " + r.GeneratedAt.Format("02/01/2006, 3:04:05 pm")
	pdf.CellFormat(0, 16, tr(sub), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(8)
	header()

	_, pageH := pdf.GetPageSize()
	for _, rec := range r.Rows {
		if pdf.GetY()+16 > pageH-50 {
			pdf.AddPage()
			header()
		}
		for i, cell := range reportRow(rec) {
			align := "L"
			if i == 5 {
				align = "R"
			}
			pdf.CellFormat(pdfColumns[i], 16, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if r.Truncated {
		if pdf.GetY()+20 > pageH-50 {
			pdf.AddPage()
		}
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(0, 14, tr(r.capNote()), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	return errors.Wrap(pdf.Output(w), "writing PDF")
}

func writeXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Attendance"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	set := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	for i, h := range reportHeaders {
		if err := set(i+1, 1, h); err != nil {
			return errors.Wrap(err, "writing header")
		}
	}
	for i, rec := range r.Rows {
		row := i + 2
		cells := reportRow(rec)
		for c, v := range cells {
			var val interface{} = v
			if c == 5 {
				val = rec.TotalMinutes
			}
			if err := set(c+1, row, val); err != nil {
				return errors.Wrapf(err, "writing row %d", row)
			}
		}
	}
	if r.Truncated {
		if err := set(1, len(r.Rows)+3, r.capNote()); err != nil {
			return errors.Wrap(err, "writing note")
		}
	}
	return errors.Wrap(f.Write(w), "writing XLSX")
}
