// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	_ "github.com/teradata-labs/wayfarer/internal/sqlitedriver"
	"github.com/teradata-labs/wayfarer/pkg/config"
	"github.com/teradata-labs/wayfarer/pkg/planner"
	"github.com/teradata-labs/wayfarer/pkg/trip"
)

// CompressionThreshold is the snapshot size in bytes above which zstd
// compression is attempted. Snapshots only store compressed when the
// compressed form is actually smaller.
const CompressionThreshold = 4 * 1024

// RunStore persists finished planner runs in a local SQLite database.
// One row per run: identity and outcome columns plus the planning-state
// snapshot as a JSON blob. Safe for concurrent use.
type RunStore struct {
	db  *sql.DB
	now func() time.Time

	// Compression encoder/decoder (reusable, thread-safe)
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// RunStoreConfig configures the run store.
type RunStoreConfig struct {
	DBPath string // Path to SQLite database (defaults to $WAYFARER_DATA_DIR/wayfarer.db)
}

// StoredRun is one persisted run with its snapshot decoded.
type StoredRun struct {
	RunID         string         `json:"run_id"`
	CreatedAt     time.Time      `json:"created_at"`
	EndReason     string         `json:"end_reason"`
	Regenerations int            `json:"regenerations"`
	Snapshot      *trip.Snapshot `json:"snapshot"`
}

// RunSummary describes a stored run without loading its snapshot.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
	EndReason     string    `json:"end_reason"`
	Regenerations int       `json:"regenerations"`
}

// GetDefaultWayfarerDBPath returns the default path to wayfarer.db.
func GetDefaultWayfarerDBPath() string {
	return filepath.Join(config.GetWayfarerDataDir(), "wayfarer.db")
}

// NewRunStore opens the run database, creating the file and schema when
// missing.
func NewRunStore(cfg *RunStoreConfig) (*RunStore, error) {
	if cfg == nil {
		cfg = &RunStoreConfig{}
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = GetDefaultWayfarerDBPath()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout for lock contention
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	store := &RunStore{
		db:      db,
		now:     time.Now,
		encoder: encoder,
		decoder: decoder,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs table if it doesn't exist.
func (s *RunStore) initSchema() error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS planner_runs (
			run_id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			end_reason TEXT NOT NULL,
			regenerations INTEGER NOT NULL,
			snapshot BLOB NOT NULL,
			compressed INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create planner_runs table: %w", err)
	}

	// Index on created_at for List ordering and Prune cutoffs
	indexSQL := `
		CREATE INDEX IF NOT EXISTS idx_planner_runs_created_at
		ON planner_runs(created_at)
	`
	_, err := s.db.Exec(indexSQL)
	return err
}

// Save persists one finished run keyed by its run ID. Saving the same run ID
// again replaces the earlier row.
func (s *RunStore) Save(ctx context.Context, run *planner.RunResult, snapshot *trip.Snapshot) error {
	if run == nil || run.RunID == "" {
		return errors.New("run with a run ID is required")
	}
	if snapshot == nil {
		snapshot = &trip.Snapshot{}
	}

	payload, err := snapshot.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	compressed := false
	if len(payload) >= CompressionThreshold {
		packed := s.encoder.EncodeAll(payload, nil)
		if len(packed) < len(payload) {
			payload = packed
			compressed = true
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO planner_runs
			(run_id, created_at, end_reason, regenerations, snapshot, compressed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, s.now().UnixMilli(), run.EndReason, run.Regenerations, payload, compressed)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// Load returns one stored run with its snapshot decoded.
func (s *RunStore) Load(ctx context.Context, runID string) (*StoredRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT created_at, end_reason, regenerations, snapshot, compressed
		FROM planner_runs WHERE run_id = ?`, runID)

	var (
		createdAt     int64
		endReason     string
		regenerations int
		payload       []byte
		compressed    bool
	)
	if err := row.Scan(&createdAt, &endReason, &regenerations, &payload, &compressed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if compressed {
		plain, err := s.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot for run %s: %w", runID, err)
		}
		payload = plain
	}

	snap, err := trip.DecodeSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for run %s: %w", runID, err)
	}

	return &StoredRun{
		RunID:         runID,
		CreatedAt:     time.UnixMilli(createdAt),
		EndReason:     endReason,
		Regenerations: regenerations,
		Snapshot:      snap,
	}, nil
}

// List returns stored runs newest first. A non-positive limit returns all
// runs.
func (s *RunStore) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 means unlimited
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, end_reason, regenerations
		FROM planner_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			sum       RunSummary
			createdAt int64
		)
		if err := rows.Scan(&sum.RunID, &createdAt, &sum.EndReason, &sum.Regenerations); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		sum.CreatedAt = time.UnixMilli(createdAt)
		runs = append(runs, sum)
	}
	return runs, rows.Err()
}

// Prune deletes runs created more than olderThan ago and reports how many
// rows were removed.
func (s *RunStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM planner_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection and compression resources.
func (s *RunStore) Close() error {
	_ = s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// Compile-time check: RunStore satisfies the planner's persistence hook.
var _ planner.RunStore = (*RunStore)(nil)
