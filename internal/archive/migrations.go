package archive

import "database/sql"

type migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

func migrations() []migration {
	return []migration{
		{
			Version:     1,
			Description: "create run history tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS runs (
						id TEXT PRIMARY KEY,
						run_at DATETIME NOT NULL,
						total_count INTEGER NOT NULL DEFAULT 0,
						offline_set TEXT NOT NULL DEFAULT '[]',
						unresolved TEXT NOT NULL DEFAULT '[]',
						notified INTEGER NOT NULL DEFAULT 0,
						edited INTEGER NOT NULL DEFAULT 0,
						message_id TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(run_at)`,

					`CREATE TABLE IF NOT EXISTS host_samples (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
						host TEXT NOT NULL,
						status TEXT NOT NULL,
						sample TEXT NOT NULL,
						consecutive_offline INTEGER NOT NULL DEFAULT 0,
						consecutive_missing INTEGER NOT NULL DEFAULT 0,
						run_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_host_samples_host_time ON host_samples(host, run_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
