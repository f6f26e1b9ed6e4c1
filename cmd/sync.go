package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/model"
)

var (
	syncFrom   string
	syncTo     string
	syncDevice string
)

var attendanceSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull punches from iDMS and rebuild attendance for a date range",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceSync,
}

func init() {
	attendanceSyncCmd.Flags().StringVar(&syncFrom, "from", "", "First day, YYYY-MM-DD (required)")
	attendanceSyncCmd.Flags().StringVar(&syncTo, "to", "", "Last day, YYYY-MM-DD (required)")
	attendanceSyncCmd.Flags().StringVar(&syncDevice, "device", "", "Only this iDMS serial number")
	attendanceCmd.AddCommand(attendanceSyncCmd)
}

func runAttendanceSync(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	from, err := parseDay("from", syncFrom, model.Day{})
	if err != nil {
		return err
	}
	to, err := parseDay("to", syncTo, model.Day{})
	if err != nil {
		return err
	}

	res, err := attendance.SyncFromIDMS(cmd.Context(), s.client, s.notify, from, to, syncDevice)
	var verr *attendance.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	if err != nil {
		return shown(err)
	}
	printRaw(res)
	return nil
}
