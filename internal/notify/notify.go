// Package notify delivers transient operator notifications ("toasts").
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Level is the severity of a toast.
type Level int

const (
	LevelSuccess Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// Notifier raises toasts. Every failed backend call ends in exactly one
// Error toast at the operation that issued it.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Console writes one coloured line per toast.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	noColor bool
}

// NewConsole returns a Console writing to w. Colour is dropped when noColor is
// set or when fatih/color has detected a non-terminal.
func NewConsole(w io.Writer, noColor bool) *Console {
	return &Console{w: w, noColor: noColor || color.NoColor}
}

func (c *Console) Success(msg string) { c.print(LevelSuccess, msg) }
func (c *Console) Info(msg string)    { c.print(LevelInfo, msg) }
func (c *Console) Warn(msg string)    { c.print(LevelWarn, msg) }
func (c *Console) Error(msg string)   { c.print(LevelError, msg) }

var prefixes = map[Level]*color.Color{
	LevelSuccess: color.New(color.FgGreen, color.Bold),
	LevelInfo:    color.New(color.FgCyan),
	LevelWarn:    color.New(color.FgYellow),
	LevelError:   color.New(color.FgRed, color.Bold),
}

func (c *Console) print(l Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := fmt.Sprintf("[%s]", l)
	if !c.noColor {
		p := prefixes[l]
		p.EnableColor()
		tag = p.Sprint(tag)
	}
	fmt.Fprintf(c.w, "%s %s\n", tag, msg)
}

// Toast is one recorded notification.
type Toast struct {
	Level   Level
	Message string
}

// Recorder keeps toasts in memory.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }
func (r *Recorder) Warn(msg string)    { r.add(LevelWarn, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(l Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Level: l, Message: msg})
}

// Toasts returns a copy of everything recorded so far.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast and whether there was one.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Count returns how many toasts of level l were recorded.
func (r *Recorder) Count(l Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Level == l {
			n++
		}
	}
	return n
}

// Discard drops every toast.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Info(string)    {}
func (Discard) Warn(string)    {}
func (Discard) Error(string)   {}
