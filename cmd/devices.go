package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/device"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

var (
	devQuery  string
	devStatus string
	devBranch string
	devPage   int
	devLimit  int

	editName     string
	editLocation string
	editBranch   string

	deleteYes bool

	// confirmIn answers delete prompts.
	confirmIn io.Reader = os.Stdin
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"dev"},
	Short:   "Manage biometric devices and send them commands",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDevicesList,
}

var devicesBranchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List branches a device can be assigned to",
	Args:  cobra.NoArgs,
	RunE:  runDevicesBranches,
}

var devicesEditCmd = &cobra.Command{
	Use:   "edit <device-id>",
	Short: "Rename, relocate or reassign a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesEdit,
}

var devicesDeleteCmd = &cobra.Command{
	Use:   "delete <device-id>",
	Short: "Remove a device registration",
	Long:  "delete asks for confirmation naming the device serial unless --yes is given.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesDelete,
}

var devicesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the backend to poll every device's status",
	Args:  cobra.NoArgs,
	RunE:  runDevicesRefresh,
}

var devicesSyncCmd = &cobra.Command{
	Use:   "sync-idms",
	Short: "Register devices known to iDMS",
	Args:  cobra.NoArgs,
	RunE:  runDevicesSync,
}

var devicesRawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Print the unprocessed iDMS device list",
	Args:  cobra.NoArgs,
	RunE:  runDevicesRaw,
}

func init() {
	lf := devicesListCmd.Flags()
	lf.StringVarP(&devQuery, "query", "q", "", "Match name, serial number or location")
	lf.StringVar(&devStatus, "status", "", "Only devices with this status (Online, Offline, ...)")
	lf.StringVarP(&devBranch, "branch", "b", "", "Only devices assigned to this branch id")
	lf.IntVar(&devPage, "page", 1, "Page number")
	lf.IntVar(&devLimit, "limit", 0, "Rows per page (default: devices.page_size)")

	ef := devicesEditCmd.Flags()
	ef.StringVar(&editName, "name", "", "New display name")
	ef.StringVar(&editLocation, "location", "", "New location")
	ef.StringVarP(&editBranch, "branch", "b", "", "Assign to this branch id")

	devicesDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesBranchesCmd)
	devicesCmd.AddCommand(devicesEditCmd)
	devicesCmd.AddCommand(devicesDeleteCmd)
	devicesCmd.AddCommand(devicesRefreshCmd)
	devicesCmd.AddCommand(devicesSyncCmd)
	devicesCmd.AddCommand(devicesRawCmd)
}

func newRegistry(s *session) *device.Registry {
	return device.NewRegistry(s.client, s.notify, s.cfg.Devices.PageSize)
}

// findDevice loads every device matching key (id or serial number) and
// returns the exact match.
func findDevice(ctx context.Context, s *session, key string) (model.Device, error) {
	r := device.NewRegistry(s.client, s.notify, 500)
	if err := r.ApplyFilters(ctx, device.Filters{Query: key}); err != nil {
		return model.Device{}, shown(err)
	}
	if d, ok := r.Find(key); ok {
		return d, nil
	}
	// Ids are not searchable server side; fall back to a full listing.
	if err := r.ResetFilters(ctx); err != nil {
		return model.Device{}, shown(err)
	}
	if d, ok := r.Find(key); ok {
		return d, nil
	}
	return model.Device{}, usagef("no device with id or serial number %q", key)
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	limit := devLimit
	if limit <= 0 {
		limit = s.cfg.Devices.PageSize
	}
	if devPage < 1 {
		return usagef("--page must be at least 1")
	}
	r := newRegistry(s)
	if err := r.ApplyFilters(cmd.Context(), device.Filters{Query: devQuery, Status: devStatus, BranchID: devBranch}); err != nil {
		return shown(err)
	}
	if devPage != 1 || limit != r.Limit() {
		if err := r.Load(cmd.Context(), devPage, limit); err != nil {
			return shown(err)
		}
	}
	return renderDevices(s, r)
}

func renderDevices(s *session, r *device.Registry) error {
	rows := r.Rows()
	if err := s.render(deviceTable(rows), model.DevicePage{Data: rows, Total: r.Total()}); err != nil {
		return err
	}
	if s.format == output.FormatTable {
		pages := 1
		if r.Total() > 0 {
			pages = (r.Total() + r.Limit() - 1) / r.Limit()
		}
		fmt.Printf("\nPage %d of %d • %d device(s)\n", r.Page(), pages, r.Total())
	}
	return nil
}

func deviceTable(rows []model.Device) output.Table {
	t := output.Table{Headers: []string{"ID", "NAME", "SERIAL", "LOCATION", "BRANCH", "STATUS", "LAST SEEN"}}
	for _, d := range rows {
		branch := "--"
		if b := d.AssignedBranch(); b != nil {
			branch = b.Name
			if branch == "" {
				branch = b.ID
			}
		}
		t.Rows = append(t.Rows, []string{
			d.ID,
			d.DisplayName(),
			d.SerialNumber,
			d.Location,
			branch,
			d.Status(),
			timecalc.FormatTimestamp(d.LastConnected),
		})
	}
	return t
}

func runDevicesBranches(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	branches, err := newRegistry(s).Branches(cmd.Context())
	if err != nil {
		return shown(err)
	}
	return s.render(branchTable(branches), branches)
}

func runDevicesEdit(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	d, err := findDevice(cmd.Context(), s, args[0])
	if err != nil {
		return err
	}
	req := device.EditRequest{Name: d.Name, Location: d.Location, BranchID: editBranch}
	if cmd.Flags().Changed("name") {
		req.Name = editName
	}
	if cmd.Flags().Changed("location") {
		req.Location = editLocation
	}

	res := newRegistry(s).Edit(cmd.Context(), d, req)
	if res.Partial() {
		fmt.Printf("%s: name and location saved, branch not assigned\n", d.ID)
	}
	return shown(res.Err)
}

func runDevicesDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	d, err := findDevice(cmd.Context(), s, args[0])
	if err != nil {
		return err
	}
	if !deleteYes && !confirm(fmt.Sprintf("Delete device %s?", d.SerialNumber)) {
		fmt.Println("Cancelled")
		return nil
	}
	return shown(newRegistry(s).Delete(cmd.Context(), d))
}

// confirm asks a yes/no question on stderr; anything but y or yes is no.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(confirmIn).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func runDevicesRefresh(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	r := newRegistry(s)
	if err := r.RefreshStatus(cmd.Context()); err != nil {
		return shown(err)
	}
	return renderDevices(s, r)
}

func runDevicesSync(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	r := newRegistry(s)
	if err := r.SyncFromIDMS(cmd.Context()); err != nil {
		return shown(err)
	}
	return renderDevices(s, r)
}

func runDevicesRaw(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	raw, err := newRegistry(s).RawIDMS(cmd.Context())
	if err != nil {
		return shown(err)
	}
	printRaw(raw)
	return nil
}

// printRaw pretty-prints a backend payload, or prints it as is when it is
// not JSON.
func printRaw(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var out bytes.Buffer
	if json.Indent(&out, raw, "", "  ") != nil {
		out.Reset()
		out.Write(raw)
	}
	fmt.Println(out.String())
}
