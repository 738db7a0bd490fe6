// Package transcript keeps an append-only SQLite log of processed turns for
// diagnosis. It is not a session store: nothing is ever read back into the
// engine.
package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Record is one processed turn.
type Record struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	TurnID       int       `json:"turn_id"`
	Timestamp    time.Time `json:"timestamp"`
	UserMessage  string    `json:"user_message"`
	BotResponse  string    `json:"bot_response"`
	Intent       string    `json:"intent,omitempty"`
	ResponseType string    `json:"response_type"`
	Confidence   float64   `json:"confidence"`
	FallbackUsed bool      `json:"fallback_used"`
	Tools        []string  `json:"tools,omitempty"`
	TotalMs      float64   `json:"total_ms"`
	Error        string    `json:"error,omitempty"`
}

// SessionSummary aggregates the records of one session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store is the SQLite transcript.
type Store struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

// Open opens or creates the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate transcript: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS turns (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL,
		turn_id       INTEGER NOT NULL,
		ts            TEXT NOT NULL,
		user_message  TEXT NOT NULL,
		bot_response  TEXT NOT NULL,
		intent        TEXT,
		response_type TEXT NOT NULL,
		confidence    REAL NOT NULL,
		fallback_used INTEGER NOT NULL DEFAULT 0,
		tools         TEXT,
		total_ms      REAL NOT NULL,
		error         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
	`)
	return err
}

func (s *Store) newID(t time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// Append writes a record, assigning an id when it has none.
func (s *Store) Append(ctx context.Context, r Record) (string, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.ID == "" {
		r.ID = s.newID(r.Timestamp)
	}

	var tools []byte
	if len(r.Tools) > 0 {
		var err error
		if tools, err = json.Marshal(r.Tools); err != nil {
			return "", fmt.Errorf("encode tools: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, turn_id, ts, user_message, bot_response, intent,
			response_type, confidence, fallback_used, tools, total_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.TurnID, r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.UserMessage, r.BotResponse, r.Intent, r.ResponseType, r.Confidence,
		r.FallbackUsed, string(tools), r.TotalMs, r.Error,
	)
	if err != nil {
		return "", fmt.Errorf("insert turn: %w", err)
	}
	return r.ID, nil
}

// List returns the records of a session, oldest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	query := `
		SELECT id, session_id, turn_id, ts, user_message, bot_response, COALESCE(intent, ''),
			response_type, confidence, fallback_used, COALESCE(tools, ''), total_ms, COALESCE(error, '')
		FROM turns WHERE session_id = ? ORDER BY id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r     Record
			ts    string
			tools string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TurnID, &ts, &r.UserMessage, &r.BotResponse,
			&r.Intent, &r.ResponseType, &r.Confidence, &r.FallbackUsed, &tools, &r.TotalMs, &r.Error); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if tools != "" {
			if err := json.Unmarshal([]byte(tools), &r.Tools); err != nil {
				return nil, fmt.Errorf("decode tools: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions summarizes every recorded session, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MIN(ts), MAX(ts)
		FROM turns GROUP BY session_id ORDER BY MAX(ts) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum         SessionSummary
			first, last string
		)
		if err := rows.Scan(&sum.SessionID, &sum.Turns, &first, &last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.FirstSeen, _ = time.Parse(time.RFC3339Nano, first)
		sum.LastSeen, _ = time.Parse(time.RFC3339Nano, last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
