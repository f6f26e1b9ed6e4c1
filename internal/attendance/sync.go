package attendance

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

// SyncFromIDMS asks the backend to pull raw punches from iDMS for [from, to]
// and aggregate them into attendance records. deviceID narrows the pull to one
// iDMS serial number when set. The backend's result is returned verbatim.
func SyncFromIDMS(ctx context.Context, client *api.Client, n notify.Notifier, from, to model.Day, deviceID string) (json.RawMessage, error) {
	if from.IsZero() || to.IsZero() {
		n.Warn("From & To dates required")
		return nil, &ValidationError{Message: "from and to dates are required"}
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "from", Message: "from must not be after to"}
	}
	res, err := client.SyncAttendanceFromIDMS(ctx, api.IDMSAttendanceSync{
		From:     from.String(),
		To:       to.String(),
		DeviceID: strings.TrimSpace(deviceID),
	})
	if err != nil {
		n.Error(api.UserMessage(err, "Failed to sync attendance from iDMS"))
		return nil, err
	}
	n.Success("Attendance sync started / completed")
	return res, nil
}
