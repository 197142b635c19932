// history records training runs and their per-episode stats in a SQLite database.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking/models"
	"parking/reinforcement"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned for run ids the database has never seen.
var ErrRunNotFound error = errors.New("run not found")

type DB struct {
	*sql.DB
}

// Run is the summary row of one training run.
type Run struct {
	ID           uuid.UUID
	Algorithm    string
	Episodes     int
	Seed         int64
	HyperParams  string
	StartedAt    time.Time
	FinishedAt   time.Time
	FinalEpsilon float64
}

// Finished reports whether FinishRun was called for the run.
func (run Run) Finished() bool {
	return !run.FinishedAt.IsZero()
}

// Open opens or creates the database at path. ":memory:" gives a throwaway store.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			algorithm         TEXT,
			episodes          BIGINT,
			seed              BIGINT,
			hyper_params      TEXT,
			started_at        BIGINT,
			finished_at       BIGINT DEFAULT 0,
			final_epsilon     DOUBLE DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS episodes (
			run_id            TEXT,
			episode           BIGINT,
			total_reward      DOUBLE,
			steps             BIGINT,
			epsilon           DOUBLE,
			parked            BOOLEAN,
			PRIMARY KEY(run_id, episode),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{db}, nil
}

// StartRun inserts a run row for cfg and returns its new id.
func (db *DB) StartRun(cfg *reinforcement.TrainingConfig) (id uuid.UUID, err error) {
	var params []byte
	if params, err = yaml.Marshal(cfg.HyperParams); err != nil {
		return uuid.Nil, fmt.Errorf("start run: %w", err)
	}

	id = uuid.New()
	_, err = db.Exec(
		`INSERT INTO runs (
			run_id, algorithm, episodes, seed, hyper_params, started_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), cfg.Algorithm["name"], cfg.Episodes, cfg.Seed, string(params),
		time.Now().UnixNano(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (db *DB) RecordEpisode(runID uuid.UUID, stats models.EpisodeStats) error {
	_, err := db.Exec(
		`INSERT INTO episodes (
			run_id, episode, total_reward, steps, epsilon, parked
		) VALUES (?, ?, ?, ?, ?, ?)`,
		runID.String(), stats.Episode, stats.TotalReward, stats.Steps, stats.Epsilon, stats.Parked,
	)
	if err != nil {
		return fmt.Errorf("record episode %d: %w", stats.Episode, err)
	}
	return nil
}

// FinishRun stamps the run's end time and the exploration rate it ended with.
func (db *DB) FinishRun(runID uuid.UUID, finalEpsilon float64) error {
	res, err := db.Exec(
		`UPDATE runs SET finished_at = ?, final_epsilon = ? WHERE run_id = ?`,
		time.Now().UnixNano(), finalEpsilon, runID.String(),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Episodes returns a run's episode stats in episode order.
func (db *DB) Episodes(runID uuid.UUID) (stats []models.EpisodeStats, err error) {
	var rows *sql.Rows
	rows, err = db.Query(
		`SELECT episode, total_reward, steps, epsilon, parked
		FROM episodes WHERE run_id = ? ORDER BY episode`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.EpisodeStats
		if err = rows.Scan(&s.Episode, &s.TotalReward, &s.Steps, &s.Epsilon, &s.Parked); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Runs lists all runs, most recent first.
func (db *DB) Runs() (runs []Run, err error) {
	var rows *sql.Rows
	rows, err = db.Query(
		`SELECT run_id, algorithm, episodes, seed, hyper_params, started_at, finished_at, final_epsilon
		FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var run Run
		var id string
		var started, finished int64
		if err = rows.Scan(
			&id, &run.Algorithm, &run.Episodes, &run.Seed, &run.HyperParams,
			&started, &finished, &run.FinalEpsilon,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan run id %q: %w", id, err)
		}
		run.StartedAt = time.Unix(0, started)
		if finished != 0 {
			run.FinishedAt = time.Unix(0, finished)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
