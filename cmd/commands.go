package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/device"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/storage"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

var (
	pullFrom   string
	pullTo     string
	syncAt     string
	cmdDevices []string
	cmdKeepSel bool
)

var devicesPullLogsCmd = &cobra.Command{
	Use:   "pull-logs",
	Short: "Ask the selected devices to upload punches for a time window",
	Long: `pull-logs sends one command to every selected device (see "devices select").
--device targets the named devices instead of the saved selection.
Window values are passed to the backend as typed, "YYYY-MM-DD HH:mm".`,
	Args: cobra.NoArgs,
	RunE: runPullLogs,
}

var devicesSyncTimeCmd = &cobra.Command{
	Use:   "sync-time",
	Short: "Set the clock of the selected devices",
	Args:  cobra.NoArgs,
	RunE:  runSyncTime,
}

var devicesCommandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List dispatched device commands",
	Args:  cobra.NoArgs,
	RunE:  runCommands,
}

func init() {
	from, to := device.DefaultPullWindow(time.Now())
	devicesPullLogsCmd.Flags().StringVar(&pullFrom, "from", from, "Window start, YYYY-MM-DD HH:mm")
	devicesPullLogsCmd.Flags().StringVar(&pullTo, "to", to, "Window end, YYYY-MM-DD HH:mm")
	devicesSyncTimeCmd.Flags().StringVar(&syncAt, "at", "", "Time to set, YYYY-MM-DDTHH:mm:ss (default: now in UTC)")

	for _, c := range []*cobra.Command{devicesPullLogsCmd, devicesSyncTimeCmd} {
		c.Flags().StringSliceVarP(&cmdDevices, "device", "d", nil, "Target these device ids or serials instead of the selection")
		c.Flags().BoolVar(&cmdKeepSel, "keep", true, "Keep the saved selection after a successful command")
		devicesCmd.AddCommand(c)
	}
	devicesCmd.AddCommand(devicesCommandsCmd)
}

// commandTargets is the --device list when given, else the saved selection.
// quick reports whether the targets came from --device.
func commandTargets(cmd *cobra.Command, s *session) (sel *device.Selection, quick bool, err error) {
	if len(cmdDevices) == 0 {
		sel, err = loadSelection(s)
		return sel, false, err
	}
	sel = device.NewSelection()
	for _, key := range cmdDevices {
		d, err := findDevice(cmd.Context(), s, strings.TrimSpace(key))
		if err != nil {
			return nil, true, err
		}
		sel.Add(d)
	}
	return sel, true, nil
}

// afterDispatch forgets the saved selection when --keep=false.
func afterDispatch(s *session, quick bool) error {
	if quick || cmdKeepSel {
		return nil
	}
	return storage.ClearSelection(s.base)
}

func runPullLogs(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	sel, quick, err := commandTargets(cmd, s)
	if err != nil {
		return err
	}
	req, err := device.NewDispatcher(s.client, s.notify).PullLogs(cmd.Context(), sel, pullFrom, pullTo)
	if err != nil {
		return shown(err)
	}
	fmt.Printf("pullLogs %s to %s -> %s\n", req.From, req.To, strings.Join(req.SerialNumbers, ", "))
	return afterDispatch(s, quick)
}

func runSyncTime(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	sel, quick, err := commandTargets(cmd, s)
	if err != nil {
		return err
	}
	at := syncAt
	if !cmd.Flags().Changed("at") {
		at = device.DefaultSyncTime(time.Now())
	}
	req, err := device.NewDispatcher(s.client, s.notify).SyncTime(cmd.Context(), sel, at)
	if err != nil {
		return shown(err)
	}
	fmt.Printf("syncTime %s -> %s\n", req.DateTime, strings.Join(req.SerialNumbers, ", "))
	return afterDispatch(s, quick)
}

func runCommands(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	cmds, err := device.Commands(cmd.Context(), s.client, s.notify)
	if err != nil {
		return shown(err)
	}
	return s.render(commandTable(cmds), cmds)
}

func commandTable(cmds []model.DeviceCommand) output.Table {
	t := output.Table{Headers: []string{"ID", "TYPE", "DEVICES", "PARAMS", "STATUS", "CREATED"}}
	for _, c := range cmds {
		params := c.Params.DateTime
		if c.Type == model.CommandPullLogs {
			params = c.Params.From + " to " + c.Params.To
		}
		t.Rows = append(t.Rows, []string{
			c.ID,
			string(c.Type),
			strings.Join(c.SerialNumbers, ", "),
			params,
			c.Status,
			timecalc.FormatTimestamp(c.CreatedAt),
		})
	}
	return t
}
