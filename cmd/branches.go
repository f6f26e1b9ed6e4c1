package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/output"
)

var branchesQuery string

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List branches with employee and device counts",
	Args:  cobra.NoArgs,
	RunE:  runBranches,
}

func init() {
	branchesCmd.Flags().StringVarP(&branchesQuery, "query", "q", "", "Filter by branch name or email")
}

func runBranches(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	sel := attendance.NewBranchSelector(s.client, s.notify)
	if err := sel.Load(cmd.Context()); err != nil {
		return shown(err)
	}
	branches := sel.Filter(branchesQuery)
	return s.render(branchTable(branches), branches)
}

func branchTable(branches []model.Branch) output.Table {
	t := output.Table{Headers: []string{"ID", "NAME", "EMAIL", "EMPLOYEES", "DEVICES"}}
	for _, b := range branches {
		t.Rows = append(t.Rows, []string{
			b.ID,
			b.Name,
			b.Email,
			strconv.Itoa(b.EmployeeCount),
			strconv.Itoa(b.DeviceCount),
		})
	}
	return t
}
