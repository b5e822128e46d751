// Package persistence provides SQLite-based storage for precomputed routes
// and experiment results.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/evacsim/internal/engine"
	"github.com/talgya/evacsim/internal/pathfind"
	"github.com/talgya/evacsim/internal/world"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS paths (
		fingerprint TEXT NOT NULL,
		from_x INTEGER NOT NULL,
		from_y INTEGER NOT NULL,
		to_x INTEGER NOT NULL,
		to_y INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		cells_json TEXT NOT NULL,
		PRIMARY KEY (fingerprint, from_x, from_y, to_x, to_y)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		exits TEXT NOT NULL,
		replication INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		visitors INTEGER NOT NULL,
		staff INTEGER NOT NULL,
		total_ticks INTEGER NOT NULL,
		evacuation_time INTEGER NOT NULL,
		fully_evacuated INTEGER NOT NULL,
		safe INTEGER NOT NULL,
		population INTEGER NOT NULL,
		unreachable INTEGER NOT NULL,
		diagnostics_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_series (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		safe INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS exit_stats (
		run_id TEXT NOT NULL,
		branch TEXT NOT NULL,
		count INTEGER NOT NULL,
		last_tick INTEGER NOT NULL,
		PRIMARY KEY (run_id, branch)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_exits ON runs(exits);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type pathRow struct {
	FromX int    `db:"from_x"`
	FromY int    `db:"from_y"`
	ToX   int    `db:"to_x"`
	ToY   int    `db:"to_y"`
	Cells string `db:"cells_json"`
}

// SavePathCache stores every route of the cache under the layout
// fingerprint, replacing whatever was stored for it before.
func (db *DB) SavePathCache(fingerprint string, c *pathfind.Cache) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM paths WHERE fingerprint = ?", fingerprint); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO paths
		(fingerprint, from_x, from_y, to_x, to_y, steps, cells_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var saveErr error
	c.Each(func(k pathfind.Key, p pathfind.Path) {
		if saveErr != nil {
			return
		}
		cells, err := json.Marshal(p)
		if err != nil {
			saveErr = err
			return
		}
		_, saveErr = stmt.Exec(fingerprint, k.From.X, k.From.Y, k.To.X, k.To.Y, p.Steps(), string(cells))
	})
	if saveErr != nil {
		return fmt.Errorf("save path: %w", saveErr)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("path cache saved", "layout", fingerprint, "routes", c.Len())
	return nil
}

// LoadPathCache restores the routes stored for a layout. It returns false
// when nothing has been stored for the fingerprint yet.
func (db *DB) LoadPathCache(fingerprint string) (*pathfind.Cache, bool, error) {
	var rows []pathRow
	err := db.conn.Select(&rows,
		"SELECT from_x, from_y, to_x, to_y, cells_json FROM paths WHERE fingerprint = ?",
		fingerprint,
	)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	c := pathfind.NewCache()
	for _, r := range rows {
		var p pathfind.Path
		if err := json.Unmarshal([]byte(r.Cells), &p); err != nil {
			return nil, false, fmt.Errorf("decode route (%d,%d)->(%d,%d): %w", r.FromX, r.FromY, r.ToX, r.ToY, err)
		}
		c.Put(world.C(r.FromX, r.FromY), world.C(r.ToX, r.ToY), p)
	}
	slog.Debug("path cache loaded", "layout", fingerprint, "routes", c.Len())
	return c, true, nil
}

// RunRecord is one stored simulation run.
type RunRecord struct {
	ID             string `db:"id" json:"id"`
	Fingerprint    string `db:"fingerprint" json:"layout"`
	Exits          string `db:"exits" json:"exits"`
	Replication    int    `db:"replication" json:"replication"`
	Seed           int64  `db:"seed" json:"seed"`
	Visitors       int    `db:"visitors" json:"visitors"`
	Staff          int    `db:"staff" json:"staff"`
	TotalTicks     int    `db:"total_ticks" json:"total_ticks"`
	EvacuationTime int    `db:"evacuation_time" json:"evacuation_time"`
	FullyEvacuated bool   `db:"fully_evacuated" json:"fully_evacuated"`
	Safe           int    `db:"safe" json:"safe"`
	Population     int    `db:"population" json:"population"`
	Unreachable    int    `db:"unreachable" json:"unreachable"`
	Diagnostics    string `db:"diagnostics_json" json:"-"`
	CreatedAt      int64  `db:"created_at" json:"created_at"` // Unix seconds

	SafeSeries []int              `db:"-" json:"safe_series,omitempty"`
	ExitStats  []engine.ExitStats `db:"-" json:"exit_stats,omitempty"`
}

// SaveRun writes a run with its telemetry series and per-exit tallies.
func (db *DB) SaveRun(r RunRecord) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().Unix()
	}
	if r.Diagnostics == "" {
		r.Diagnostics = "{}"
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT OR REPLACE INTO runs
		(id, fingerprint, exits, replication, seed, visitors, staff, total_ticks,
		 evacuation_time, fully_evacuated, safe, population, unreachable, diagnostics_json, created_at)
		VALUES (:id, :fingerprint, :exits, :replication, :seed, :visitors, :staff, :total_ticks,
		 :evacuation_time, :fully_evacuated, :safe, :population, :unreachable, :diagnostics_json, :created_at)`, r)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM run_series WHERE run_id = ?", r.ID); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO run_series (run_id, tick, safe) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, safe := range r.SafeSeries {
		if _, err := stmt.Exec(r.ID, i+1, safe); err != nil {
			return fmt.Errorf("insert series: %w", err)
		}
	}

	if _, err := tx.Exec("DELETE FROM exit_stats WHERE run_id = ?", r.ID); err != nil {
		return err
	}
	for _, e := range r.ExitStats {
		_, err := tx.Exec(
			"INSERT INTO exit_stats (run_id, branch, count, last_tick) VALUES (?, ?, ?, ?)",
			r.ID, e.Branch, e.Count, e.LastTick,
		)
		if err != nil {
			return fmt.Errorf("insert exit stats: %w", err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first, without their series.
func (db *DB) Runs(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, id LIMIT ?",
		limit,
	)
	return runs, err
}

// Run loads a single run with its series and exit tallies.
func (db *DB) Run(id string) (RunRecord, error) {
	var r RunRecord
	if err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return r, err
	}
	if err := db.conn.Select(&r.SafeSeries,
		"SELECT safe FROM run_series WHERE run_id = ? ORDER BY tick", id); err != nil {
		return r, err
	}
	err := db.conn.Select(&r.ExitStats,
		"SELECT branch, count, last_tick AS lasttick FROM exit_stats WHERE run_id = ? ORDER BY branch", id)
	return r, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key yields "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
