package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	flagBaseURL string
	flagFormat  string
	flagDebug   bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "clinicctl",
	Short: "clinicctl – attendance review and biometric device console",
	Long: `clinicctl is the operator console of a multi-branch clinic backend.
It reviews and approves daily attendance per branch, exports reports and
dispatches commands to biometric devices. State lives in ~/.clinicctl/.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var se shownError
		if !errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "Backend REST root (overrides config and CLINICCTL_API_BASE_URL)")
	pf.StringVar(&flagFormat, "format", "table", "Output format: table, json, yaml or csv")
	pf.BoolVar(&flagDebug, "debug", false, "Log every request to stderr")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable coloured notifications")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(attendanceCmd)
	rootCmd.AddCommand(employeeCmd)
	rootCmd.AddCommand(employeesCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(sandboxCmd)
}
