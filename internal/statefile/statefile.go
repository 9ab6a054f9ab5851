// Package statefile persists the monitor's state and stats documents as
// JSON files on disk. A missing file loads as a zero document so the
// first run starts clean; writes go through a temp file and rename so a
// crash mid-write never leaves a truncated document behind.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HerbHall/runnerwatch/internal/monitor"
)

// LoadState reads the monitor state document at path. A missing file
// returns a zero state and no error.
func LoadState(path string) (monitor.MonitorState, error) {
	var state monitor.MonitorState
	if err := load(path, &state); err != nil {
		return monitor.MonitorState{}, fmt.Errorf("load state %s: %w", path, err)
	}
	return state, nil
}

// SaveState writes the monitor state document to path atomically.
func SaveState(path string, state monitor.MonitorState) error {
	if err := save(path, state); err != nil {
		return fmt.Errorf("save state %s: %w", path, err)
	}
	return nil
}

// LoadStats reads the rolling stats document at path. A missing file
// returns zero stats and no error.
func LoadStats(path string) (monitor.MonitorStats, error) {
	var stats monitor.MonitorStats
	if err := load(path, &stats); err != nil {
		return monitor.MonitorStats{}, fmt.Errorf("load stats %s: %w", path, err)
	}
	return stats, nil
}

// SaveStats writes the rolling stats document to path atomically.
func SaveStats(path string, stats monitor.MonitorStats) error {
	if err := save(path, stats); err != nil {
		return fmt.Errorf("save stats %s: %w", path, err)
	}
	return nil
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
