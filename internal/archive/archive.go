// Package archive provides SQLite-backed persistence for grid-search runs.
package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
	"lookahead-backtest/internal/sweep"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one archived sweep.
type Run struct {
	ID         string                   `json:"id"`
	Label      string                   `json:"label"`
	CreatedAt  time.Time                `json:"created_at"`
	Battery    model.BatteryParams      `json:"battery"`
	InitialSOC float64                  `json:"initial_soc"`
	Threshold  strategy.ThresholdParams `json:"threshold"`
	Datasets   int                      `json:"datasets"`
}

// BestRow is the best horizon of one dataset in one run.
type BestRow struct {
	RunID     string    `json:"run_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Horizon   int       `json:"horizon"`
	Profit    float64   `json:"profit"`
	Cycles    float64   `json:"cycles"`
}

// Archive wraps a SQLite database.
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/lookahead-backtest/runs.db.
func Open(dbPath string) (*Archive, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "lookahead-backtest", "runs.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	a := &Archive{db: db, now: time.Now}
	if err := a.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			label       TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			battery     TEXT NOT NULL,
			initial_soc REAL NOT NULL,
			threshold   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			run_id                TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			dataset               TEXT NOT NULL,
			position              INTEGER NOT NULL,
			horizon               INTEGER NOT NULL,
			profit                REAL NOT NULL,
			cycles                REAL NOT NULL,
			energy_charged_mwh    REAL NOT NULL,
			energy_discharged_mwh REAL NOT NULL,
			best                  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, dataset, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_best ON entries(dataset, best)`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSweep stores a sweep and its per-horizon entries in one transaction.
func (a *Archive) SaveSweep(label string, d *sweep.Driver, results []sweep.DatasetResult) (*Run, error) {
	if d == nil {
		return nil, fmt.Errorf("driver is nil")
	}
	batteryJSON, err := json.Marshal(d.Battery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal battery: %w", err)
	}
	thresholdJSON, err := json.Marshal(d.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal threshold: %w", err)
	}

	run := &Run{
		ID:         uuid.NewString(),
		Label:      label,
		CreatedAt:  a.now().UTC(),
		Battery:    d.Battery,
		InitialSOC: d.InitialSOC,
		Threshold:  d.Threshold,
		Datasets:   len(results),
	}

	tx, err := a.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		INSERT INTO runs (id, label, created_at, battery, initial_soc, threshold)
		VALUES (?,?,?,?,?,?)`,
		run.ID, run.Label, run.CreatedAt.UnixNano(), string(batteryJSON), run.InitialSOC, string(thresholdJSON),
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range results {
		for i, e := range r.Entries {
			if _, err := tx.Exec(`
				INSERT INTO entries
					(run_id, dataset, position, horizon, profit, cycles,
					 energy_charged_mwh, energy_discharged_mwh, best)
				VALUES (?,?,?,?,?,?,?,?,?)`,
				run.ID, r.Dataset, i, e.Horizon, e.Profit, e.Cycles,
				e.EnergyChargedMWh, e.EnergyDischargedMWh, boolToInt(e.Horizon == r.Best.Horizon),
			); err != nil {
				return nil, fmt.Errorf("failed to insert entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first. limit <= 0 returns all.
func (a *Archive) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.Query(`
		SELECT r.id, r.label, r.created_at, r.battery, r.initial_soc, r.threshold,
		       (SELECT COUNT(DISTINCT dataset) FROM entries e WHERE e.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// GetRun loads a run and its results, entries in their original order.
func (a *Archive) GetRun(id string) (*Run, []sweep.DatasetResult, error) {
	row := a.db.QueryRow(`
		SELECT r.id, r.label, r.created_at, r.battery, r.initial_soc, r.threshold,
		       (SELECT COUNT(DISTINCT dataset) FROM entries e WHERE e.run_id = r.id)
		FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := a.db.Query(`
		SELECT dataset, horizon, profit, cycles, energy_charged_mwh, energy_discharged_mwh, best
		FROM entries WHERE run_id = ?
		ORDER BY rowid`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var results []sweep.DatasetResult
	for rows.Next() {
		var (
			ds   string
			e    sweep.Entry
			best int
		)
		if err := rows.Scan(&ds, &e.Horizon, &e.Profit, &e.Cycles, &e.EnergyChargedMWh, &e.EnergyDischargedMWh, &best); err != nil {
			return nil, nil, err
		}
		if len(results) == 0 || results[len(results)-1].Dataset != ds {
			results = append(results, sweep.DatasetResult{Dataset: ds})
		}
		cur := &results[len(results)-1]
		cur.Entries = append(cur.Entries, e)
		if best == 1 {
			cur.Best = e
		}
	}
	return run, results, rows.Err()
}

// BestByDataset lists the best horizon of every archived run, grouped by dataset
// and oldest run first. An empty dataset matches all.
func (a *Archive) BestByDataset(dataset string) ([]BestRow, error) {
	rows, err := a.db.Query(`
		SELECT e.run_id, r.label, r.created_at, e.dataset, e.horizon, e.profit, e.cycles
		FROM entries e JOIN runs r ON r.id = e.run_id
		WHERE e.best = 1 AND (? = '' OR e.dataset = ?)
		ORDER BY e.dataset, r.created_at`, dataset, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query best entries: %w", err)
	}
	defer rows.Close()

	var out []BestRow
	for rows.Next() {
		var (
			b  BestRow
			ts int64
		)
		if err := rows.Scan(&b.RunID, &b.Label, &ts, &b.Dataset, &b.Horizon, &b.Profit, &b.Cycles); err != nil {
			return nil, err
		}
		b.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its entries.
func (a *Archive) DeleteRun(id string) error {
	res, err := a.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanRun(scan func(...any) error) (*Run, error) {
	var (
		r             Run
		ts            int64
		battery, thre string
	)
	if err := scan(&r.ID, &r.Label, &ts, &battery, &r.InitialSOC, &thre, &r.Datasets); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, ts).UTC()
	if err := json.Unmarshal([]byte(battery), &r.Battery); err != nil {
		return nil, fmt.Errorf("failed to decode battery of run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(thre), &r.Threshold); err != nil {
		return nil, fmt.Errorf("failed to decode threshold of run %s: %w", r.ID, err)
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
