package device

import (
	"sync"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// Selection is the operator's ordered, duplicate-free choice of devices.
// It holds whole device records so a confirmation can name them; serial
// numbers are derived only when a command is submitted.
type Selection struct {
	mu      sync.Mutex
	devices []model.Device
}

// NewSelection returns a selection holding devices, duplicates dropped.
func NewSelection(devices ...model.Device) *Selection {
	s := &Selection{}
	s.Add(devices...)
	return s
}

func sameDevice(a, b model.Device) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.SerialNumber == b.SerialNumber
}

func (s *Selection) indexOf(d model.Device) int {
	for i, have := range s.devices {
		if sameDevice(have, d) {
			return i
		}
	}
	return -1
}

// Add appends devices not already selected.
func (s *Selection) Add(devices ...model.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range devices {
		if s.indexOf(d) < 0 {
			s.devices = append(s.devices, d)
		}
	}
}

// Remove drops devices; unknown ones are ignored.
func (s *Selection) Remove(devices ...model.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range devices {
		if i := s.indexOf(d); i >= 0 {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
		}
	}
}

// Toggle selects d if absent and deselects it if present.
func (s *Selection) Toggle(d model.Device) {
	s.mu.Lock()
	i := s.indexOf(d)
	s.mu.Unlock()
	if i >= 0 {
		s.Remove(d)
		return
	}
	s.Add(d)
}

// Replace makes devices the whole selection, as a single-device quick action
// does.
func (s *Selection) Replace(devices ...model.Device) {
	s.mu.Lock()
	s.devices = nil
	s.mu.Unlock()
	s.Add(devices...)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = nil
}

// Devices returns the selected devices in selection order.
func (s *Selection) Devices() []model.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Device{}, s.devices...)
}

// Len is the number of selected devices.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// SerialNumbers derives the command targets from the current selection.
// Devices without a serial number cannot be addressed and are skipped.
func (s *Selection) SerialNumbers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.devices))
	seen := make(map[string]bool, len(s.devices))
	for _, d := range s.devices {
		if d.SerialNumber == "" || seen[d.SerialNumber] {
			continue
		}
		seen[d.SerialNumber] = true
		out = append(out, d.SerialNumber)
	}
	return out
}
