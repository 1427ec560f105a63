// Package store persists conversation history. A session is an ordered,
// append-only sequence of turns; Append is the only mutation and is
// serialized per session id so concurrent turns can never interleave
// within one session.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ymatsuda/machichat/internal/db"
)

// Turn is one question/answer exchange. ContextRef references the
// assembled context used for the answer (passage ids and scores), for
// auditability; it is not a copy of the context itself.
type Turn struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	ContextRef string    `json:"context_ref"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session is the ordered sequence of turns sharing a session id.
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

// Store manages persistence of conversation sessions.
type Store struct {
	db *db.DB

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes writes for one session id. refs counts the
// holder plus any waiters so the entry can be evicted when idle.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a conversation store on top of the given database.
func New(database *db.DB) *Store {
	return &Store{
		db:    database,
		locks: make(map[string]*sessionLock),
	}
}

// lockSession acquires the write lock for one session id.
func (s *Store) lockSession(sessionID string) *sessionLock {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

// unlockSession releases the lock and evicts the entry once no writer
// holds or waits on it, keeping the map bounded in long-lived servers.
func (s *Store) unlockSession(sessionID string, l *sessionLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

// Append records a turn. The write is atomic: the turn is either fully
// recorded or not recorded at all. Appends for the same session are
// serialized; different sessions proceed in parallel.
func (s *Store) Append(ctx context.Context, t Turn) (*Turn, error) {
	if t.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	lock := s.lockSession(t.SessionID)
	defer s.unlockSession(t.SessionID, lock)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		t.SessionID, t.CreatedAt, t.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, question, answer, context_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Question, t.Answer, t.ContextRef, t.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}

	return &t, nil
}

// Load returns the session with all its turns in arrival order.
// An unknown session id yields an empty session, not an error.
func (s *Store) Load(ctx context.Context, sessionID string) (*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, question, answer, context_ref, created_at
		 FROM turns WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	sess := &Session{ID: sessionID}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer, &t.ContextRef, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		sess.Turns = append(sess.Turns, t)
	}
	return sess, rows.Err()
}

// Clear removes a session and all its turns.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	lock := s.lockSession(sessionID)
	defer s.unlockSession(sessionID, lock)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning clear transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return tx.Commit()
}

// ListSessions returns all session ids, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
