package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/device"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/storage"
)

var devicesSelectCmd = &cobra.Command{
	Use:   "select <device-id|serial>...",
	Short: "Add devices to the command selection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSelect,
}

var devicesDeselectCmd = &cobra.Command{
	Use:   "deselect <device-id|serial>...",
	Short: "Remove devices from the command selection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeselect,
}

var devicesSelectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show the devices commands will be sent to",
	Args:  cobra.NoArgs,
	RunE:  runSelection,
}

var devicesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the command selection",
	Args:  cobra.NoArgs,
	RunE:  runClearSelection,
}

func init() {
	devicesCmd.AddCommand(devicesSelectCmd)
	devicesCmd.AddCommand(devicesDeselectCmd)
	devicesCmd.AddCommand(devicesSelectionCmd)
	devicesCmd.AddCommand(devicesClearCmd)
}

// loadSelection restores the selection saved by earlier invocations.
func loadSelection(s *session) (*device.Selection, error) {
	saved, err := storage.LoadSelection(s.base)
	if err != nil {
		return nil, err
	}
	return device.NewSelection(saved...), nil
}

func runSelect(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	sel, err := loadSelection(s)
	if err != nil {
		return err
	}
	for _, key := range args {
		d, err := findDevice(cmd.Context(), s, key)
		if err != nil {
			return err
		}
		sel.Add(d)
	}
	if err := storage.SaveSelection(s.base, sel.Devices()); err != nil {
		return err
	}
	fmt.Printf("%d device(s) selected\n", sel.Len())
	return nil
}

func runDeselect(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	sel, err := loadSelection(s)
	if err != nil {
		return err
	}
	// Match offline against the saved records so removed devices can still
	// be deselected.
	for _, key := range args {
		for _, d := range sel.Devices() {
			if d.ID == key || d.SerialNumber == key {
				sel.Remove(d)
			}
		}
	}
	if err := storage.SaveSelection(s.base, sel.Devices()); err != nil {
		return err
	}
	fmt.Printf("%d device(s) selected\n", sel.Len())
	return nil
}

func runSelection(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	sel, err := loadSelection(s)
	if err != nil {
		return err
	}
	devices := sel.Devices()
	if s.format == output.FormatTable && len(devices) == 0 {
		fmt.Println("No devices selected.")
		return nil
	}
	return s.render(deviceTable(devices), devices)
}

func runClearSelection(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := storage.ClearSelection(s.base); err != nil {
		return err
	}
	fmt.Println("Selection cleared")
	return nil
}
