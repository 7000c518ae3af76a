// Package store persists conversation transcripts to SQLite. The
// transcript is an audit log: it is written during dialogue runs and
// read by tooling, never used to restore dialogue state.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Session identifies one conversation run.
type Session struct {
	ID        string
	Bot       string
	Script    string
	StartedAt time.Time
}

// Turn is one user utterance and the bot's reaction to it.
type Turn struct {
	SessionID   string
	Seq         int
	Utterance   string
	Intent      string
	Confidence  float64
	StateBefore string
	StateAfter  string
	Response    string
	CreatedAt   time.Time
}

// Store records dialogue sessions and turns.
type Store interface {
	BeginSession(bot, script string) (*Session, error)
	RecordTurn(t Turn) error
	SessionTurns(sessionID string) ([]Turn, error)
	Close() error
}

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite transcript database at the given
// path and ensures the schema exists. Use ":memory:" for tests.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		bot        TEXT NOT NULL,
		script     TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS turns (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id   TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		utterance    TEXT NOT NULL,
		intent       TEXT NOT NULL DEFAULT '',
		confidence   REAL NOT NULL DEFAULT 0,
		state_before TEXT NOT NULL DEFAULT '',
		state_after  TEXT NOT NULL DEFAULT '',
		response     TEXT NOT NULL DEFAULT '',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginSession records the start of a conversation and returns its
// session with a fresh id.
func (s *SQLiteStore) BeginSession(bot, script string) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Bot:       bot,
		Script:    script,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, bot, script, started_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Bot, session.Script, session.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return session, nil
}

// RecordTurn appends one turn to a session's transcript.
func (s *SQLiteStore) RecordTurn(t Turn) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO turns (session_id, seq, utterance, intent, confidence, state_before, state_after, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Seq, t.Utterance, t.Intent, t.Confidence,
		t.StateBefore, t.StateAfter, t.Response, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// SessionTurns returns a session's turns in order.
func (s *SQLiteStore) SessionTurns(sessionID string) ([]Turn, error) {
	rows, err := s.db.Query(
		`SELECT session_id, seq, utterance, intent, confidence, state_before, state_after, response, created_at
		 FROM turns WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.SessionID, &t.Seq, &t.Utterance, &t.Intent, &t.Confidence,
			&t.StateBefore, &t.StateAfter, &t.Response, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
