package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// HomeEnv overrides the state directory location.
const HomeEnv = "CLINICCTL_HOME"

// BaseDir returns the root state directory (~/.clinicctl unless overridden).
func BaseDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".clinicctl"), nil
}

// ReadJSON decodes the file at path into v. It reports false with no error
// when the file does not exist. A file that fails to decode is moved aside
// to <path>.corrupt so the next write starts clean.
func ReadJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return false, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return true, nil
}

// WriteJSON atomically writes v as indented JSON with owner-only permissions.
func WriteJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// WriteFile atomically writes whatever fill produces to path. The file is
// readable by others since exports are meant to be shared.
func WriteFile(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Remove deletes the file at path; a missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage error removing %s: %w", path, err)
	}
	return nil
}

// selectionFile is the on-disk device selection.
type selectionFile struct {
	Devices []model.Device `json:"devices"`
}

func selectionPath(base string) string {
	return filepath.Join(base, "selection.json")
}

// LoadSelection returns the persisted device selection, empty if none.
func LoadSelection(base string) ([]model.Device, error) {
	var sf selectionFile
	if _, err := ReadJSON(selectionPath(base), &sf); err != nil {
		return nil, err
	}
	if sf.Devices == nil {
		return []model.Device{}, nil
	}
	return sf.Devices, nil
}

// SaveSelection persists the device selection, replacing any previous one.
func SaveSelection(base string, devices []model.Device) error {
	if devices == nil {
		devices = []model.Device{}
	}
	return WriteJSON(selectionPath(base), selectionFile{Devices: devices})
}

// ClearSelection forgets the persisted device selection.
func ClearSelection(base string) error {
	return Remove(selectionPath(base))
}
