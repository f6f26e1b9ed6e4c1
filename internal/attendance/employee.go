package attendance

import (
	"context"
	"strings"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

// EmployeeSummary is one employee's attendance over a date range. Days counts
// days with a record; RangeDays counts every calendar day in the range.
type EmployeeSummary struct {
	// Employee is nil when its lookup failed; the records still load.
	Employee     *model.Employee          `json:"employee,omitempty" yaml:"employee,omitempty"`
	From         model.Day                `json:"from" yaml:"from"`
	To           model.Day                `json:"to" yaml:"to"`
	Records      []model.AttendanceRecord `json:"records" yaml:"records"`
	Days         int                      `json:"days" yaml:"days"`
	RangeDays    int                      `json:"rangeDays" yaml:"rangeDays"`
	TotalMinutes int                      `json:"totalMinutes" yaml:"totalMinutes"`
}

// EmployeeAttendance loads an employee and their daily records in [from, to].
func EmployeeAttendance(ctx context.Context, client *api.Client, n notify.Notifier, id string, from, to model.Day) (EmployeeSummary, error) {
	s := EmployeeSummary{From: from, To: to, Records: []model.AttendanceRecord{}, RangeDays: timecalc.DaysInRange(from, to)}
	if id == "" {
		return s, &ValidationError{Field: "id", Message: "employee is required"}
	}
	if err := (Filters{From: from, To: to}).Validate(); err != nil {
		return s, err
	}

	if emp, err := client.Employee(ctx, id); err == nil {
		s.Employee = &emp
	}

	records, err := client.EmployeeAttendance(ctx, id, from, to)
	if err != nil {
		n.Error(api.UserMessage(err, "Failed to load attendance"))
		return s, err
	}
	s.Records = records
	s.Days = len(records)
	for _, r := range records {
		s.TotalMinutes += r.TotalMinutes
	}
	return s, nil
}

// EmployeeFilter narrows the employee list. Query matches name, employee id
// and branch name case-insensitively.
type EmployeeFilter struct {
	Query    string
	BranchID string
}

func (f EmployeeFilter) match(e model.Employee) bool {
	if f.BranchID != "" && (e.Branch == nil || e.Branch.ID != f.BranchID) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	branch := ""
	if e.Branch != nil {
		branch = e.Branch.Name
	}
	for _, field := range []string{e.Name, e.EmployeeID, branch} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Employees lists the employees mapped to machine ids and branches that
// match f. A failed load raises an error toast.
func Employees(ctx context.Context, client *api.Client, n notify.Notifier, f EmployeeFilter) ([]model.Employee, error) {
	all, err := client.Employees(ctx)
	if err != nil {
		n.Error(api.UserMessage(err, "Failed to load employees"))
		return []model.Employee{}, err
	}
	out := make([]model.Employee, 0, len(all))
	for _, e := range all {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
