package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore stores sessions in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		report TEXT,
		error TEXT,
		iterations INTEGER,
		limit_reached INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		iteration INTEGER,
		agent TEXT,
		task TEXT,
		content TEXT,
		steps TEXT,
		tool TEXT,
		args TEXT,
		success INTEGER,
		error TEXT,
		duration_ms INTEGER,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save upserts the session and replaces its events.
func (s *SQLiteStore) Save(sess *Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, query, status, report, error, iterations, limit_reached, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			report = excluded.report,
			error = excluded.error,
			iterations = excluded.iterations,
			limit_reached = excluded.limit_reached,
			updated_at = excluded.updated_at
	`, sess.ID, sess.Query, sess.Status, sess.Report, sess.Error, sess.Iterations,
		sess.LimitReached, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM events WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	for _, e := range sess.Events {
		argsJSON, _ := json.Marshal(e.Args)
		stepsJSON, _ := json.Marshal(e.Steps)
		var success sql.NullBool
		if e.Success != nil {
			success = sql.NullBool{Bool: *e.Success, Valid: true}
		}
		_, err = tx.Exec(`
			INSERT INTO events (session_id, seq, type, iteration, agent, task, content, steps, tool, args, success, error, duration_ms, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sess.ID, e.SeqID, e.Type, e.Iteration, e.Agent, e.Task, e.Content, string(stepsJSON),
			e.Tool, string(argsJSON), success, e.Error, e.DurationMs, e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}

	return tx.Commit()
}

// Load loads a session and its events.
func (s *SQLiteStore) Load(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, query, status, report, error, iterations, limit_reached, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)

	var sess Session
	var report, errText sql.NullString
	var iterations sql.NullInt64
	var limit sql.NullBool
	err := row.Scan(&sess.ID, &sess.Query, &sess.Status, &report, &errText, &iterations, &limit,
		&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.Report = report.String
	sess.Error = errText.String
	sess.Iterations = int(iterations.Int64)
	sess.LimitReached = limit.Bool

	rows, err := s.db.Query(`
		SELECT seq, type, iteration, agent, task, content, steps, tool, args, success, error, duration_ms, timestamp
		FROM events WHERE session_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	sess.Events = []Event{}
	for rows.Next() {
		var e Event
		var iteration, durationMs sql.NullInt64
		var agent, task, content, steps, tool, args, eventErr sql.NullString
		var success sql.NullBool
		if err := rows.Scan(&e.SeqID, &e.Type, &iteration, &agent, &task, &content, &steps, &tool,
			&args, &success, &eventErr, &durationMs, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Iteration = int(iteration.Int64)
		e.Agent = agent.String
		e.Task = task.String
		e.Content = content.String
		e.Tool = tool.String
		e.Error = eventErr.String
		e.DurationMs = durationMs.Int64
		if steps.Valid && steps.String != "null" {
			json.Unmarshal([]byte(steps.String), &e.Steps)
		}
		if args.Valid && args.String != "null" {
			json.Unmarshal([]byte(args.String), &e.Args)
		}
		if success.Valid {
			b := success.Bool
			e.Success = &b
		}
		sess.Events = append(sess.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	sess.restoreSeq()
	return &sess, nil
}

// List returns stored session IDs, most recently updated first.
func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
