package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// maxStoredMessages caps the transcript persisted with a micro memory.
const maxStoredMessages = 10

// Message is a single conversation turn held inside a micro memory.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// MicroMemory is a summarized record of one conversation session.
type MicroMemory struct {
	ID             string
	UserID         string
	Summary        string
	Messages       []Message
	PrimaryEmotion string
	Intensity      float64
	Topics         []string
	Importance     float64
	CreatedAt      int64
	LastAccessed   int64
	AccessCount    int
	Consolidated   bool
	ConsolidatedAt *int64
}

const microColumns = `id, user_id, summary, messages, primary_emotion, intensity, topics,
	importance, created_at, last_accessed, access_count, consolidated, consolidated_at`

// CreateMicroMemory inserts a micro memory. The caller assigns the ID and
// importance; CreatedAt is set here if zero.
func (db *DB) CreateMicroMemory(m *MicroMemory) error {
	if m.ID == "" {
		return fmt.Errorf("micro memory id is empty")
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	m.LastAccessed = m.CreatedAt

	// The stored transcript keeps the 10 most recent messages; the
	// summary carries the rest of the session.
	if len(m.Messages) > maxStoredMessages {
		m.Messages = m.Messages[len(m.Messages)-maxStoredMessages:]
	}

	msgJSON, err := json.Marshal(m.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	topicsJSON, err := json.Marshal(emptyIfNil(m.Topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}

	summary, err := db.encrypt(m.Summary)
	if err != nil {
		return fmt.Errorf("encrypt summary: %w", err)
	}
	messages, err := db.encrypt(string(msgJSON))
	if err != nil {
		return fmt.Errorf("encrypt messages: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO micro_memories (`+microColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, NULL)
	`, m.ID, m.UserID, summary, messages, m.PrimaryEmotion, m.Intensity,
		string(topicsJSON), m.Importance, m.CreatedAt, m.LastAccessed)
	if err != nil {
		return fmt.Errorf("create micro memory: %w", err)
	}
	return nil
}

// GetMicroMemory returns one micro memory by ID and records the access.
func (db *DB) GetMicroMemory(userID, id string) (*MicroMemory, error) {
	row := db.QueryRow(`
		SELECT `+microColumns+` FROM micro_memories WHERE user_id = ? AND id = ?
	`, userID, id)
	m, err := db.scanMicro(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get micro memory: %w", err)
	}

	now := time.Now().UnixMilli()
	if _, err := db.Exec(`
		UPDATE micro_memories SET last_accessed = ?, access_count = access_count + 1 WHERE id = ?
	`, now, id); err != nil {
		return nil, fmt.Errorf("touch micro memory: %w", err)
	}
	m.LastAccessed = now
	m.AccessCount++
	return m, nil
}

// RecentMicroMemories returns the newest micro memories for a user,
// consolidated or not, ordered newest first.
func (db *DB) RecentMicroMemories(userID string, limit int) ([]MicroMemory, error) {
	rows, err := db.Query(`
		SELECT `+microColumns+` FROM micro_memories
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent micro memories: %w", err)
	}
	return db.collectMicro(rows)
}

// UnconsolidatedMicroMemories returns micro memories not yet rolled into
// a super memory, newest first. limit <= 0 means no limit.
func (db *DB) UnconsolidatedMicroMemories(userID string, limit int) ([]MicroMemory, error) {
	q := `SELECT ` + microColumns + ` FROM micro_memories
		WHERE user_id = ? AND consolidated = 0 ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(q+` LIMIT ?`, userID, limit)
	} else {
		rows, err = db.Query(q, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("unconsolidated micro memories: %w", err)
	}
	return db.collectMicro(rows)
}

// UnconsolidatedCount returns how many micro memories await consolidation.
func (db *DB) UnconsolidatedCount(userID string) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM micro_memories WHERE user_id = ? AND consolidated = 0
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unconsolidated: %w", err)
	}
	return n, nil
}

// MarkConsolidated flags micro memories as consumed by a super memory.
// Runs in one transaction so a partial batch never persists.
func (db *DB) MarkConsolidated(userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin mark consolidated: %w", err)
	}
	now := time.Now().UnixMilli()
	for _, id := range ids {
		if _, err := tx.Exec(`
			UPDATE micro_memories SET consolidated = 1, consolidated_at = ?
			WHERE user_id = ? AND id = ?
		`, now, userID, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("mark consolidated %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// BoostImportance raises a micro memory's stored importance, capped at 10.
func (db *DB) BoostImportance(userID, id string, delta float64) error {
	_, err := db.Exec(`
		UPDATE micro_memories SET importance = MIN(importance + ?, 10.0)
		WHERE user_id = ? AND id = ?
	`, delta, userID, id)
	if err != nil {
		return fmt.Errorf("boost importance: %w", err)
	}
	return nil
}

// ConsolidatedBefore returns consolidated micro memories created before
// the cutoff, candidates for cleanup.
func (db *DB) ConsolidatedBefore(userID string, cutoff int64) ([]MicroMemory, error) {
	rows, err := db.Query(`
		SELECT `+microColumns+` FROM micro_memories
		WHERE user_id = ? AND consolidated = 1 AND created_at < ?
		ORDER BY created_at
	`, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("consolidated before: %w", err)
	}
	return db.collectMicro(rows)
}

// DeleteMicroMemories removes micro memories by ID. Returns the number
// deleted.
func (db *DB) DeleteMicroMemories(userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	result, err := db.Exec(`
		DELETE FROM micro_memories WHERE user_id = ? AND id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete micro memories: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// CountMicroMemories returns the total micro memory count for a user.
func (db *DB) CountMicroMemories(userID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM micro_memories WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count micro memories: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanMicro(row rowScanner) (*MicroMemory, error) {
	var m MicroMemory
	var summary, messages, topics string
	var consolidated int
	err := row.Scan(&m.ID, &m.UserID, &summary, &messages, &m.PrimaryEmotion, &m.Intensity,
		&topics, &m.Importance, &m.CreatedAt, &m.LastAccessed, &m.AccessCount,
		&consolidated, &m.ConsolidatedAt)
	if err != nil {
		return nil, err
	}
	m.Summary = db.decrypt(summary)
	m.Consolidated = consolidated != 0

	if err := json.Unmarshal([]byte(db.decrypt(messages)), &m.Messages); err != nil {
		// An undecryptable transcript falls back to empty; the summary
		// column still carries its own token.
		m.Messages = nil
	}
	if err := json.Unmarshal([]byte(topics), &m.Topics); err != nil {
		m.Topics = nil
	}
	return &m, nil
}

func (db *DB) collectMicro(rows *sql.Rows) ([]MicroMemory, error) {
	defer rows.Close()
	var memories []MicroMemory
	for rows.Next() {
		m, err := db.scanMicro(rows)
		if err != nil {
			return nil, fmt.Errorf("scan micro memory: %w", err)
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
