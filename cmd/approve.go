package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
)

var approveFlags viewFlags

var attendanceApproveCmd = &cobra.Command{
	Use:   "approve <record-id>...",
	Short: "Mark attendance records as approved",
	Args:  cobra.MinimumNArgs(1),
	RunE:  approvalRunner(model.StatusApproved),
}

var attendanceRejectCmd = &cobra.Command{
	Use:   "reject <record-id>...",
	Short: "Mark attendance records as rejected",
	Args:  cobra.MinimumNArgs(1),
	RunE:  approvalRunner(model.StatusRejected),
}

var attendanceResetCmd = &cobra.Command{
	Use:   "reset <record-id>...",
	Short: "Move attendance records back to pending",
	Args:  cobra.MinimumNArgs(1),
	RunE:  approvalRunner(model.StatusPending),
}

func init() {
	for _, c := range []*cobra.Command{attendanceApproveCmd, attendanceRejectCmd, attendanceResetCmd} {
		addViewFlags(c, &approveFlags)
		attendanceCmd.AddCommand(c)
	}
}

// approvalRunner moves every named record to next. The records are looked up
// on the page the view flags select; ids off that page are still sent.
func approvalRunner(next model.ApprovalStatus) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		v, err := openView(cmd.Context(), s, approveFlags, false)
		if err != nil {
			return err
		}
		a := attendance.NewApprovals(s.client, v, s.notify)

		var first error
		for _, id := range args {
			tr, err := a.Set(cmd.Context(), id, next)
			switch {
			case err == nil:
				if tr.From != "" {
					fmt.Printf("%s: %s -> %s\n", id, tr.From, tr.To)
				} else {
					fmt.Printf("%s: -> %s\n", id, tr.To)
				}
			case errors.Is(err, attendance.ErrNoop):
				s.notify.Info(fmt.Sprintf("%s is already %s", id, next))
			default:
				var verr *attendance.ValidationError
				if !errors.As(err, &verr) {
					err = shown(err)
				}
				if first == nil {
					first = err
				}
			}
		}
		return first
	}
}
