package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Session tracks one conversation session's lifecycle.
type Session struct {
	ID           int64
	SessionID    string
	UserID       string
	StartedAt    int64
	EndedAt      *int64
	Status       string
	EndReason    *string
	MessageCount int
	MemoryID     *string
}

// StartSession records a new active session.
func (db *DB) StartSession(sessionID, userID string) (*Session, error) {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO sessions (session_id, user_id, started_at, status)
		VALUES (?, ?, ?, 'active')
	`, sessionID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, _ := result.LastInsertId()
	return &Session{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		StartedAt: now,
		Status:    "active",
	}, nil
}

// GetSession returns a session by its session_id, or nil if absent.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	var s Session
	err := db.QueryRow(`
		SELECT id, session_id, user_id, started_at, ended_at, status, end_reason, message_count, memory_id
		FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.Status, &s.EndReason, &s.MessageCount, &s.MemoryID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// IncrementMessageCount bumps the message counter on an active session.
func (db *DB) IncrementMessageCount(sessionID string) error {
	_, err := db.Exec(`
		UPDATE sessions SET message_count = message_count + 1
		WHERE session_id = ? AND status = 'active'
	`, sessionID)
	if err != nil {
		return fmt.Errorf("increment message count: %w", err)
	}
	return nil
}

// EndSession marks a session ended and links the micro memory written
// for it, if any.
func (db *DB) EndSession(sessionID, reason, memoryID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE sessions SET status = 'ended', ended_at = COALESCE(ended_at, ?),
			end_reason = ?, memory_id = NULLIF(?, '')
		WHERE session_id = ? AND status = 'active'
	`, now, reason, memoryID, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// RecentSessions returns a user's most recent sessions, newest first.
func (db *DB) RecentSessions(userID string, limit int) ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, session_id, user_id, started_at, ended_at, status, end_reason, message_count, memory_id
		FROM sessions WHERE user_id = ? ORDER BY started_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.SessionID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.Status, &s.EndReason, &s.MessageCount, &s.MemoryID); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
