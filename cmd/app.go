package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/attendance"
	"github.com/0xPratikag/clinicctl/internal/auth"
	"github.com/0xPratikag/clinicctl/internal/config"
	"github.com/0xPratikag/clinicctl/internal/device"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
	"github.com/0xPratikag/clinicctl/internal/output"
	"github.com/0xPratikag/clinicctl/internal/storage"
)

// session is what a backend command needs: state directory, config, the
// auth context and a client bound to it.
type session struct {
	base   string
	cfg    config.Config
	auth   *auth.Context
	http   *http.Client
	client *api.Client
	notify notify.Notifier
	format output.Format
}

func openSession() (*session, error) {
	config.LoadDotEnv()
	base, err := storage.BaseDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(base)
	if err != nil {
		return nil, err
	}
	if flagBaseURL != "" {
		cfg.API.BaseURL = flagBaseURL
		if err := config.Validate(cfg); err != nil {
			return nil, usagef("--base-url %q: %v", flagBaseURL, err)
		}
	}
	format, err := output.ParseFormat(flagFormat)
	if err != nil {
		return nil, usageError{err}
	}

	authCtx, err := auth.Open(base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	hc := &http.Client{Timeout: cfg.Timeout()}
	opts := []api.Option{api.WithHTTPClient(hc)}
	if flagDebug {
		opts = append(opts, api.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}
	return &session{
		base:   base,
		cfg:    cfg,
		auth:   authCtx,
		http:   hc,
		client: api.New(cfg.API.BaseURL, authCtx, opts...),
		notify: notify.NewConsole(os.Stderr, flagNoColor),
		format: format,
	}, nil
}

func (s *session) render(t output.Table, v interface{}) error {
	return output.Render(os.Stdout, s.format, t, v)
}

// usageError marks an operator mistake rather than an I/O or backend failure.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// shownError is an error the operator has already seen as a notification.
type shownError struct{ err error }

func (e shownError) Error() string { return e.err.Error() }
func (e shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return shownError{err}
}

func usagef(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// exitCode is 1 for operator errors (bad input, not logged in, nothing
// selected) and 2 for everything else.
func exitCode(err error) int {
	var (
		uerr usageError
		verr *attendance.ValidationError
		ferr *device.FieldError
		lerr *auth.LoginError
	)
	switch {
	case errors.As(err, &uerr), errors.As(err, &verr), errors.As(err, &ferr):
		return 1
	case errors.As(err, &lerr) && lerr.Rejected():
		return 1
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, auth.ErrExpired):
		return 1
	case errors.Is(err, device.ErrNoDevices), errors.Is(err, attendance.ErrNoop):
		return 1
	case api.IsStatus(err, 401):
		return 1
	}
	return 2
}

// parseDay reads an optional YYYY-MM-DD flag value, returning def when blank.
func parseDay(flag, value string, def model.Day) (model.Day, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	d, err := model.ParseDay(value)
	if err != nil {
		return model.Day{}, usagef("invalid --%s value %q (want YYYY-MM-DD)", flag, value)
	}
	return d, nil
}

// dateRange resolves --from/--to against the configured default range.
func dateRange(cfg config.Config, from, to string) (model.Day, model.Day, error) {
	def := attendance.DefaultFilters(time.Now(), cfg.Attendance.DefaultDays)
	f, err := parseDay("from", from, def.From)
	if err != nil {
		return f, f, err
	}
	t, err := parseDay("to", to, def.To)
	return f, t, err
}

func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}
