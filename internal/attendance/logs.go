package attendance

import (
	"context"
	"sort"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
)

// Logs is one state of the punch log display.
type Logs struct {
	Title  string             `json:"title" yaml:"title"`
	Events []model.PunchEvent `json:"events" yaml:"events"`
	// Loading is set while the authoritative list is being fetched.
	Loading bool `json:"-" yaml:"-"`
	// Stale is set when the fetch failed and Events are the inline punches.
	Stale bool `json:"stale" yaml:"stale"`
}

// LogViewer shows the punch history of one record.
type LogViewer struct {
	client *api.Client
}

// NewLogViewer returns a viewer fetching through client.
func NewLogViewer(client *api.Client) *LogViewer {
	return &LogViewer{client: client}
}

// LogsTitle is "<employee> • <date>".
func LogsTitle(rec model.AttendanceRecord) string {
	name := rec.Employee.Name
	if name == "" {
		name = "Employee"
	}
	return name + " • " + rec.Date.String()
}

// Open calls show at once with the record's inline punches, then fetches the
// authoritative list and calls show again with it. A failed fetch keeps the
// inline punches on display; it never produces an error state. The final
// state is returned.
func (lv *LogViewer) Open(ctx context.Context, rec model.AttendanceRecord, show func(Logs)) Logs {
	if show == nil {
		show = func(Logs) {}
	}
	title := LogsTitle(rec)
	inline := chronological(rec.Logs)
	show(Logs{Title: title, Events: inline, Loading: true})

	events, err := lv.client.AttendanceLogs(ctx, rec.ID)
	final := Logs{Title: title, Events: chronological(events)}
	if err != nil {
		final = Logs{Title: title, Events: inline, Stale: true}
	}
	show(final)
	return final
}

func chronological(in []model.PunchEvent) []model.PunchEvent {
	out := append([]model.PunchEvent{}, in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
