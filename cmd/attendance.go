package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

// viewFlags select one page of one branch's attendance.
type viewFlags struct {
	branch string
	from   string
	to     string
	status string
	query  string
	page   int
	limit  int
}

var attFlags viewFlags

var attendanceCmd = &cobra.Command{
	Use:     "attendance",
	Aliases: []string{"att"},
	Short:   "Review, approve and export branch attendance",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of a branch's daily attendance",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceList,
}

var attendanceLogsCmd = &cobra.Command{
	Use:   "logs <record-id>",
	Short: "Show the punch history behind one attendance record",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceLogs,
}

func addViewFlags(cmd *cobra.Command, vf *viewFlags) {
	f := cmd.Flags()
	f.StringVarP(&vf.branch, "branch", "b", "", "Branch id (required)")
	f.StringVar(&vf.from, "from", "", "First day, YYYY-MM-DD (default: today minus attendance.default_days)")
	f.StringVar(&vf.to, "to", "", "Last day, YYYY-MM-DD (default: today)")
	f.StringVar(&vf.status, "status", "", "Only pending, approved or rejected records")
	f.StringVarP(&vf.query, "query", "q", "", "Employee name or machine id")
	f.IntVar(&vf.page, "page", 1, "Page number")
	f.IntVar(&vf.limit, "limit", 0, "Rows per page (default: attendance.page_size)")
	_ = cmd.MarkFlagRequired("branch")
}

func init() {
	addViewFlags(attendanceListCmd, &attFlags)
	addViewFlags(attendanceLogsCmd, &attFlags)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceLogsCmd)
}

// filters builds and validates the filter set named by the flags.
func (vf viewFlags) filters(s *session) (attendance.Filters, error) {
	from, to, err := dateRange(s.cfg, vf.from, vf.to)
	if err != nil {
		return attendance.Filters{}, err
	}
	f := attendance.Filters{From: from, To: to, Query: vf.query}
	if strings.TrimSpace(vf.status) != "" {
		st, err := model.ParseApprovalStatus(vf.status)
		if err != nil {
			return f, usageError{err}
		}
		f.Status = st
	}
	return f, f.Validate()
}

// openView loads the page the flags describe. branchName is looked up only
// when named is set, since it costs a request.
func openView(ctx context.Context, s *session, vf viewFlags, named bool) (*attendance.View, error) {
	f, err := vf.filters(s)
	if err != nil {
		return nil, err
	}
	limit := vf.limit
	if limit <= 0 {
		limit = s.cfg.Attendance.PageSize
	}
	name := ""
	if named {
		name = branchName(ctx, s, vf.branch)
	}
	v, err := attendance.NewView(s.client, s.notify, vf.branch, name, f, limit)
	if err != nil {
		return nil, err
	}
	if vf.page < 1 {
		return nil, usagef("--page must be at least 1")
	}
	if err := v.Load(ctx, vf.page, limit); err != nil {
		return nil, shown(err)
	}
	return v, nil
}

// branchName resolves a branch id to its display name, falling back to the id.
func branchName(ctx context.Context, s *session, id string) string {
	sel := attendance.NewBranchSelector(s.client, s.notify)
	if sel.Load(ctx) == nil {
		if b, ok := sel.Find(id); ok && b.Name != "" {
			return b.Name
		}
	}
	return id
}

type attendancePage struct {
	BranchID string                   `json:"branchId" yaml:"branchId"`
	Filters  string                   `json:"filters" yaml:"filters"`
	Page     int                      `json:"page" yaml:"page"`
	Pages    int                      `json:"pages" yaml:"pages"`
	Limit    int                      `json:"limit" yaml:"limit"`
	Total    int                      `json:"total" yaml:"total"`
	Rows     []model.AttendanceRecord `json:"rows" yaml:"rows"`
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	v, err := openView(cmd.Context(), s, attFlags, false)
	if err != nil {
		return err
	}
	rows := v.Rows()
	if err := s.render(attendanceTable(rows), attendancePage{
		BranchID: v.BranchID(),
		Filters:  v.Applied().Summary(),
		Page:     v.Page(),
		Pages:    v.Pages(),
		Limit:    v.Limit(),
		Total:    v.Total(),
		Rows:     rows,
	}); err != nil {
		return err
	}
	if s.format == output.FormatTable {
		if len(rows) == 0 {
			fmt.Println("No records for these filters.")
		}
		fmt.Printf("\nPage %d of %d • %d record(s) • %s\n", v.Page(), v.Pages(), v.Total(), v.Applied().Summary())
	}
	return nil
}

func attendanceTable(rows []model.AttendanceRecord) output.Table {
	t := output.Table{Headers: []string{"ID", "DATE", "EMPLOYEE", "EMP ID", "FIRST IN", "LAST OUT", "WORKED", "STATUS"}}
	for _, r := range rows {
		empID := "--"
		if r.Employee.MachineEmpID != nil {
			empID = strconv.Itoa(*r.Employee.MachineEmpID)
		}
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.Date.String(),
			r.Employee.Name,
			empID,
			timecalc.FormatClock(r.FirstIn),
			timecalc.FormatClock(r.LastOut),
			timecalc.FormatMinutes(r.TotalMinutes),
			strings.ToUpper(string(r.Status())),
		})
	}
	return t
}

func runAttendanceLogs(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	v, err := openView(cmd.Context(), s, attFlags, false)
	if err != nil {
		return err
	}
	rec, ok := v.Row(args[0])
	if !ok {
		// Not on this page: the viewer still fetches the authoritative list.
		rec = model.AttendanceRecord{ID: args[0]}
	}

	logs := attendance.NewLogViewer(s.client).Open(cmd.Context(), rec, nil)
	if logs.Stale {
		s.notify.Warn("Could not refresh punches; showing the ones stored on the record")
	}

	t := output.Table{Headers: []string{"TIME", "TYPE", "DEVICE"}}
	for _, ev := range logs.Events {
		at := ev.Time
		device := "--"
		if ev.DeviceID != nil && *ev.DeviceID != "" {
			device = *ev.DeviceID
		}
		t.Rows = append(t.Rows, []string{timecalc.FormatTimestamp(&at), strings.ToUpper(string(ev.Type)), device})
	}
	if s.format == output.FormatTable {
		fmt.Fprintln(os.Stdout, logs.Title)
		if len(logs.Events) == 0 {
			fmt.Println("No punches.")
			return nil
		}
	}
	return s.render(t, logs)
}
