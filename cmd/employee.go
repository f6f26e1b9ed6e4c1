package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

var (
	employeeFrom string
	employeeTo   string

	employeesQuery  string
	employeesBranch string
)

var employeeCmd = &cobra.Command{
	Use:   "employee <employee-id>",
	Short: "Show one employee's daily attendance over a date range",
	Long: `employee lists one employee's daily records. Find the id with "clinicctl employees".
Without --from/--to the current calendar month is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmployee,
}

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List employees mapped to machine ids and branches",
	Args:  cobra.NoArgs,
	RunE:  runEmployees,
}

func init() {
	employeeCmd.Flags().StringVar(&employeeFrom, "from", "", "First day, YYYY-MM-DD (default: first day of this month)")
	employeeCmd.Flags().StringVar(&employeeTo, "to", "", "Last day, YYYY-MM-DD (default: last day of this month)")

	employeesCmd.Flags().StringVarP(&employeesQuery, "query", "q", "", "Match name, employee id or branch name")
	employeesCmd.Flags().StringVarP(&employeesBranch, "branch", "b", "", "Only employees of this branch id")
}

func runEmployee(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	first, last := timecalc.MonthRange(time.Now())
	from, err := parseDay("from", employeeFrom, first)
	if err != nil {
		return err
	}
	to, err := parseDay("to", employeeTo, last)
	if err != nil {
		return err
	}

	sum, err := attendance.EmployeeAttendance(cmd.Context(), s.client, s.notify, args[0], from, to)
	var verr *attendance.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	if err != nil {
		return shown(err)
	}

	if err := s.render(attendanceTable(sum.Records), sum); err != nil {
		return err
	}
	if s.format == output.FormatTable {
		name := args[0]
		if sum.Employee != nil && sum.Employee.Name != "" {
			name = sum.Employee.Name
		}
		fmt.Printf("\n%s • %s to %s • %d of %d day(s) • %s worked\n",
			name, sum.From, sum.To, sum.Days, sum.RangeDays, timecalc.FormatMinutes(sum.TotalMinutes))
	}
	return nil
}

func runEmployees(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	employees, err := attendance.Employees(cmd.Context(), s.client, s.notify, attendance.EmployeeFilter{
		Query:    employeesQuery,
		BranchID: employeesBranch,
	})
	if err != nil {
		return shown(err)
	}
	if s.format == output.FormatTable && len(employees) == 0 {
		fmt.Println("No employees found.")
		return nil
	}
	return s.render(employeeTable(employees), employees)
}

func employeeTable(employees []model.Employee) output.Table {
	t := output.Table{Headers: []string{"ID", "EMPLOYEE ID", "NAME", "MACHINE ID", "BRANCH", "STATUS"}}
	for _, e := range employees {
		machine := "--"
		if e.MachineEmpID != nil {
			machine = strconv.Itoa(*e.MachineEmpID)
		}
		branch := "--"
		if e.Branch != nil && e.Branch.Name != "" {
			branch = e.Branch.Name
		}
		status := "Inactive"
		if e.IsActive {
			status = "Active"
		}
		t.Rows = append(t.Rows, []string{e.ID, e.EmployeeID, e.Name, machine, branch, status})
	}
	return t
}
