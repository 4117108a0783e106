package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Fact is a single durable profile fact, scoped to one user.
type Fact struct {
	ID          int64
	UserID      string
	Category    string
	Key         string
	Value       string
	Source      string
	CreatedAt   int64
	LastUpdated int64
}

// UpsertFact writes a fact, overwriting any existing value under the
// same (user, category, key). Last write wins.
func (db *DB) UpsertFact(userID, category, key, value, source string) error {
	if source == "" {
		source = "user"
	}
	sealed, err := db.encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt fact: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO facts (user_id, category, key, value, source, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category, key)
		DO UPDATE SET value = excluded.value, source = excluded.source, last_updated = excluded.last_updated
	`, userID, category, key, sealed, source, now, now)
	if err != nil {
		return fmt.Errorf("upsert fact: %w", err)
	}
	return nil
}

// GetFact returns a fact by category and key, or nil if absent.
func (db *DB) GetFact(userID, category, key string) (*Fact, error) {
	var f Fact
	err := db.QueryRow(`
		SELECT id, user_id, category, key, value, source, created_at, last_updated
		FROM facts WHERE user_id = ? AND category = ? AND key = ?
	`, userID, category, key).Scan(&f.ID, &f.UserID, &f.Category, &f.Key, &f.Value, &f.Source, &f.CreatedAt, &f.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fact: %w", err)
	}
	f.Value = db.decrypt(f.Value)
	return &f, nil
}

// AllFacts returns every fact for a user, ordered by category then key.
func (db *DB) AllFacts(userID string) ([]Fact, error) {
	rows, err := db.Query(`
		SELECT id, user_id, category, key, value, source, created_at, last_updated
		FROM facts WHERE user_id = ? ORDER BY category, key
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Category, &f.Key, &f.Value, &f.Source, &f.CreatedAt, &f.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.Value = db.decrypt(f.Value)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// DeleteFact removes a fact. Returns true if a row was deleted.
func (db *DB) DeleteFact(userID, category, key string) (bool, error) {
	result, err := db.Exec(`
		DELETE FROM facts WHERE user_id = ? AND category = ? AND key = ?
	`, userID, category, key)
	if err != nil {
		return false, fmt.Errorf("delete fact: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CountFacts returns the number of facts stored for a user.
func (db *DB) CountFacts(userID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM facts WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}
