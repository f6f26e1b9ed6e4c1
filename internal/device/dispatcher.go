package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

// ErrNoDevices rejects a command submitted with nothing selected.
var ErrNoDevices = errors.New("select at least 1 device")

// FieldError is a blank command parameter, caught before any request.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return e.Field + " is required"
}

// DefaultPullWindow is today 00:00 through today 23:59 in now's location.
func DefaultPullWindow(now time.Time) (from, to string) {
	return timecalc.StartOfDay(now).Format(timecalc.PullWindowLayout),
		timecalc.EndOfDay(now).Format(timecalc.PullWindowLayout)
}

// DefaultSyncTime is now in UTC as YYYY-MM-DDTHH:mm:ss.
func DefaultSyncTime(now time.Time) string {
	return now.UTC().Format(timecalc.SyncTimeLayout)
}

// Dispatcher submits bulk commands for a selection. Window and time values
// are passed through as typed; only emptiness is checked here.
type Dispatcher struct {
	client   *api.Client
	notify   notify.Notifier
	validate *validator.Validate
}

// NewDispatcher returns a dispatcher posting through client.
func NewDispatcher(client *api.Client, n notify.Notifier) *Dispatcher {
	return &Dispatcher{client: client, notify: n, validate: validator.New()}
}

// PullLogs asks every selected device for its punches in [from, to].
// Serial numbers are read from sel at the moment of the call.
func (d *Dispatcher) PullLogs(ctx context.Context, sel *Selection, from, to string) (model.PullLogsRequest, error) {
	req := model.PullLogsRequest{
		SerialNumbers: sel.SerialNumbers(),
		From:          strings.TrimSpace(from),
		To:            strings.TrimSpace(to),
	}
	if err := d.check(req); err != nil {
		return req, err
	}
	if err := d.client.PullLogs(ctx, req); err != nil {
		d.notify.Error(api.UserMessage(err, "Pull logs failed"))
		return req, err
	}
	d.notify.Success("Pull logs command sent")
	return req, nil
}

// SyncTime sets the clock of every selected device to dateTime.
func (d *Dispatcher) SyncTime(ctx context.Context, sel *Selection, dateTime string) (model.SyncTimeRequest, error) {
	req := model.SyncTimeRequest{
		SerialNumbers: sel.SerialNumbers(),
		DateTime:      strings.TrimSpace(dateTime),
	}
	if err := d.check(req); err != nil {
		return req, err
	}
	if err := d.client.SyncTime(ctx, req); err != nil {
		d.notify.Error(api.UserMessage(err, "Sync time failed"))
		return req, err
	}
	d.notify.Success("Sync time command sent")
	return req, nil
}

// check maps validation failures to ErrNoDevices or a FieldError and raises
// the matching toast.
func (d *Dispatcher) check(req interface{}) error {
	err := d.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.StructField() == "SerialNumbers" || strings.HasPrefix(fe.StructField(), "SerialNumbers[") {
		d.notify.Error("Select at least 1 device")
		return ErrNoDevices
	}
	ferr := &FieldError{Field: jsonName(fe.StructField())}
	d.notify.Error(fmt.Sprintf("%s is required", ferr.Field))
	return ferr
}

func jsonName(field string) string {
	switch field {
	case "DateTime":
		return "dateTime"
	case "From":
		return "from"
	case "To":
		return "to"
	}
	return field
}
