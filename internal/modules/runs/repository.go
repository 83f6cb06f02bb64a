// Package runs persists minimization runs: their input Hamiltonian, final
// result and the per-evaluation trace, so finished runs can be inspected
// and replayed through the API.
package runs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/avramidis/eigenspin/internal/database"
	"github.com/avramidis/eigenspin/internal/modules/vqe"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is a stored minimization run.
type Run struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Hamiltonian   string          `json:"hamiltonian"`
	InitialParams []float64       `json:"initial_params"`
	OptimalParams []float64       `json:"optimal_params,omitempty"`
	Energy        *float64        `json:"energy,omitempty"`
	Iterations    int             `json:"iterations"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
	Trace         []vqe.Iteration `json:"trace,omitempty"`
}

// Repository handles CRUD operations for minimization runs.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// InitSchema creates the runs table if it does not exist.
func (r *Repository) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			finished_at INTEGER,
			hamiltonian TEXT NOT NULL,
			initial_params TEXT NOT NULL,
			optimal_params TEXT,
			energy REAL,
			iterations INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			trace BLOB
		) STRICT
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = r.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs index: %w", err)
	}

	return nil
}

// Create inserts a new running run and returns its ID.
func (r *Repository) Create(hamiltonian string, initialParams []float64) (string, error) {
	id := uuid.New().String()

	initial, err := json.Marshal(initialParams)
	if err != nil {
		return "", fmt.Errorf("failed to encode initial params: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO runs (id, created_at, hamiltonian, initial_params, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, time.Now().Unix(), hamiltonian, string(initial), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	r.log.Debug().Str("run_id", id).Msg("Run created")
	return id, nil
}

// Complete marks a run as finished and stores its result, including the
// msgpack-encoded evaluation trace.
func (r *Repository) Complete(id string, result *vqe.Result) error {
	optimal, err := json.Marshal(result.Params)
	if err != nil {
		return fmt.Errorf("failed to encode optimal params: %w", err)
	}

	trace, err := msgpack.Marshal(result.Trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	res, err := r.db.Exec(`
		UPDATE runs
		SET finished_at = ?,
			optimal_params = ?,
			energy = ?,
			iterations = ?,
			status = ?,
			trace = ?
		WHERE id = ?
	`, time.Now().Unix(), string(optimal), result.Energy, result.Iterations, StatusCompleted, trace, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// Fail marks a run as failed with the given reason.
func (r *Repository) Fail(id string, reason string) error {
	res, err := r.db.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?
	`, time.Now().Unix(), StatusFailed, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark run as failed: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// Get returns a run by ID, including its decoded trace.
func (r *Repository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, created_at, finished_at, hamiltonian, initial_params,
		       optimal_params, energy, iterations, status, error, trace
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// List returns runs ordered newest first, without traces.
func (r *Repository) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, finished_at, hamiltonian, initial_params,
		       optimal_params, energy, iterations, status, error
		FROM runs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		var (
			run        Run
			createdAt  int64
			finishedAt sql.NullInt64
			initial    string
			optimal    sql.NullString
			energy     sql.NullFloat64
		)
		err := rows.Scan(&run.ID, &createdAt, &finishedAt, &run.Hamiltonian,
			&initial, &optimal, &energy, &run.Iterations, &run.Status, &run.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := hydrateRun(&run, createdAt, finishedAt, initial, optimal, energy, nil); err != nil {
			return nil, err
		}
		result = append(result, run)
	}

	return result, rows.Err()
}

// PruneOlderThan deletes finished runs older than the cutoff and returns
// the number of rows removed.
func (r *Repository) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM runs WHERE created_at < ? AND status != ?
	`, cutoff.Unix(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}

	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Pruned old runs")
	}
	return deleted, nil
}

func scanRun(row *sql.Row) (*Run, error) {
	var (
		run        Run
		createdAt  int64
		finishedAt sql.NullInt64
		initial    string
		optimal    sql.NullString
		energy     sql.NullFloat64
		trace      []byte
	)
	err := row.Scan(&run.ID, &createdAt, &finishedAt, &run.Hamiltonian,
		&initial, &optimal, &energy, &run.Iterations, &run.Status, &run.Error, &trace)
	if err != nil {
		return nil, err
	}
	if err := hydrateRun(&run, createdAt, finishedAt, initial, optimal, energy, trace); err != nil {
		return nil, err
	}
	return &run, nil
}

func hydrateRun(run *Run, createdAt int64, finishedAt sql.NullInt64, initial string, optimal sql.NullString, energy sql.NullFloat64, trace []byte) error {
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(initial), &run.InitialParams); err != nil {
		return fmt.Errorf("failed to decode initial params: %w", err)
	}
	if optimal.Valid && optimal.String != "" {
		if err := json.Unmarshal([]byte(optimal.String), &run.OptimalParams); err != nil {
			return fmt.Errorf("failed to decode optimal params: %w", err)
		}
	}
	if energy.Valid {
		e := energy.Float64
		run.Energy = &e
	}
	if len(trace) > 0 {
		if err := msgpack.Unmarshal(trace, &run.Trace); err != nil {
			return fmt.Errorf("failed to decode trace: %w", err)
		}
	}
	return nil
}
