package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunRecord is one archived monitoring pass.
type RunRecord struct {
	ID         string    `json:"id"`
	RunAt      time.Time `json:"run_at"`
	TotalCount int       `json:"total_count"`
	OfflineSet []string  `json:"offline_set"`
	Unresolved []string  `json:"unresolved"`
	Notified   bool      `json:"notified"`
	Edited     bool      `json:"edited"`
	MessageID  string    `json:"message_id,omitempty"`
}

// HostSample is one host's outcome within a run.
type HostSample struct {
	Host               string    `json:"host"`
	Status             string    `json:"status"`
	Sample             string    `json:"sample"`
	ConsecutiveOffline int       `json:"consecutive_offline"`
	ConsecutiveMissing int       `json:"consecutive_missing"`
	RunAt              time.Time `json:"run_at"`
}

// RecordRun inserts a run and its per-host samples in one transaction.
// A run id is assigned when the record has none; the id is returned.
func (a *Archive) RecordRun(ctx context.Context, rec RunRecord, samples []HostSample) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	offlineSet, err := json.Marshal(emptyIfNil(rec.OfflineSet))
	if err != nil {
		return "", fmt.Errorf("marshal offline set: %w", err)
	}
	unresolved, err := json.Marshal(emptyIfNil(rec.Unresolved))
	if err != nil {
		return "", fmt.Errorf("marshal unresolved: %w", err)
	}

	err = a.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, run_at, total_count, offline_set, unresolved, notified, edited, message_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.RunAt.UTC(), rec.TotalCount, string(offlineSet), string(unresolved),
			boolInt(rec.Notified), boolInt(rec.Edited), rec.MessageID,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, s := range samples {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO host_samples (run_id, host, status, sample, consecutive_offline, consecutive_missing, run_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, s.Host, s.Status, s.Sample,
				s.ConsecutiveOffline, s.ConsecutiveMissing, rec.RunAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert sample for %s: %w", s.Host, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// ListRecentRuns returns up to limit runs, newest first.
func (a *Archive) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, run_at, total_count, offline_set, unresolved, notified, edited, message_id
		FROM runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var offlineSet, unresolved string
		var notified, edited int
		if err := rows.Scan(&rec.ID, &rec.RunAt, &rec.TotalCount, &offlineSet, &unresolved,
			&notified, &edited, &rec.MessageID); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(offlineSet), &rec.OfflineSet); err != nil {
			return nil, fmt.Errorf("parse offline set for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(unresolved), &rec.Unresolved); err != nil {
			return nil, fmt.Errorf("parse unresolved for %s: %w", rec.ID, err)
		}
		rec.Notified = notified != 0
		rec.Edited = edited != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListHostSamples returns a host's samples since the given time, oldest first.
func (a *Archive) ListHostSamples(ctx context.Context, host string, since time.Time) ([]HostSample, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT host, status, sample, consecutive_offline, consecutive_missing, run_at
		FROM host_samples WHERE host = ? AND run_at >= ? ORDER BY run_at ASC`,
		host, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []HostSample
	for rows.Next() {
		var s HostSample
		if err := rows.Scan(&s.Host, &s.Status, &s.Sample,
			&s.ConsecutiveOffline, &s.ConsecutiveMissing, &s.RunAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneBefore deletes runs (and their samples, via cascade) older than
// cutoff. Returns the number of runs removed.
func (a *Archive) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM runs WHERE run_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
