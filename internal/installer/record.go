package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const recordFileName = "installed.json"

// InstalledBinary describes one installed executable.
type InstalledBinary struct {
	Tag         string    `json:"tag"`
	Asset       string    `json:"asset"`
	SHA256      string    `json:"sha256"`
	InstalledAt time.Time `json:"installed_at"`
}

// Record lists what install put into the binary directory.
type Record struct {
	Binaries map[string]InstalledBinary `json:"binaries"`
}

// Tag returns the release tag binary was installed from, or "".
func (r *Record) Tag(binary string) string {
	if r == nil {
		return ""
	}
	return r.Binaries[binary].Tag
}

// LoadRecord reads the install record from binDir. It returns an empty
// record when nothing was installed yet.
func LoadRecord(binDir string) (*Record, error) {
	rec := &Record{Binaries: map[string]InstalledBinary{}}
	data, err := os.ReadFile(filepath.Join(binDir, recordFileName))
	if os.IsNotExist(err) {
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading install record: %w", err)
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parsing install record: %w", err)
	}
	if rec.Binaries == nil {
		rec.Binaries = map[string]InstalledBinary{}
	}
	return rec, nil
}

// SaveRecord writes the install record into binDir.
func SaveRecord(binDir string, rec *Record) error {
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return fmt.Errorf("creating binary directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling install record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, recordFileName), data, 0644); err != nil {
		return fmt.Errorf("writing install record: %w", err)
	}
	return nil
}
