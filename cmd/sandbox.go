package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/sandbox"
)

var (
	sandboxAddr    string
	sandboxSeed    bool
	sandboxSecret  string
	sandboxOrigins []string
	sandboxQuiet   bool
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Serve an in-memory clinic backend for rehearsals",
	Long: `sandbox serves the clinic REST API from memory. With --seed it starts with
demo branches, employees, attendance and devices; log in with
  clinicctl --base-url http://localhost:5000 login --email ` + sandbox.DemoEmail + ` --password ` + sandbox.DemoPassword + `
Nothing is persisted.`,
	Args: cobra.NoArgs,
	RunE: runSandbox,
}

func init() {
	f := sandboxCmd.Flags()
	f.StringVar(&sandboxAddr, "addr", ":5000", "Listen address")
	f.BoolVar(&sandboxSeed, "seed", true, "Start with demo data")
	f.StringVar(&sandboxSecret, "secret", "", "Token signing secret (default: built-in)")
	f.StringSliceVar(&sandboxOrigins, "origin", nil, "Allowed browser origins (default: any)")
	f.BoolVar(&sandboxQuiet, "quiet", false, "Do not log requests")
}

func runSandbox(cmd *cobra.Command, args []string) error {
	store := sandbox.NewStore()
	if sandboxSeed {
		sandbox.Seed(store)
	}
	opts := sandbox.Options{Secret: sandboxSecret, AllowOrigins: sandboxOrigins}
	if !sandboxQuiet {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	srv := &http.Server{
		Addr:              sandboxAddr,
		Handler:           sandbox.New(store, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Fprintf(os.Stderr, "Sandbox listening on %s\n", sandboxAddr)

	select {
	case err := <-errc:
		return err
	case <-cmd.Context().Done():
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Sandbox stopped")
	return nil
}
