package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SuperMemory is a consolidated record distilled from a batch of micro
// memories: themes and emotional arc rather than individual sessions.
type SuperMemory struct {
	ID                  string
	UserID              string
	Summary             string
	Themes              []string
	Topics              []string
	DominantEmotion     string
	AverageIntensity    float64
	EmotionDistribution map[string]int
	SourceMemoryIDs     []string
	RangeStart          int64
	RangeEnd            int64
	Importance          float64
	CreatedAt           int64
	LastAccessed        int64
	AccessCount         int
}

const superColumns = `id, user_id, summary, themes, topics, dominant_emotion, average_intensity,
	emotion_distribution, source_memory_ids, range_start, range_end, importance,
	created_at, last_accessed, access_count`

// CreateSuperMemory inserts a super memory.
func (db *DB) CreateSuperMemory(s *SuperMemory) error {
	if s.ID == "" {
		return fmt.Errorf("super memory id is empty")
	}
	if s.CreatedAt == 0 {
		s.CreatedAt = time.Now().UnixMilli()
	}
	s.LastAccessed = s.CreatedAt

	themes, err := json.Marshal(emptyIfNil(s.Themes))
	if err != nil {
		return fmt.Errorf("marshal themes: %w", err)
	}
	topics, err := json.Marshal(emptyIfNil(s.Topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	dist := s.EmotionDistribution
	if dist == nil {
		dist = map[string]int{}
	}
	distJSON, err := json.Marshal(dist)
	if err != nil {
		return fmt.Errorf("marshal emotion distribution: %w", err)
	}
	sources, err := json.Marshal(emptyIfNil(s.SourceMemoryIDs))
	if err != nil {
		return fmt.Errorf("marshal source ids: %w", err)
	}

	summary, err := db.encrypt(s.Summary)
	if err != nil {
		return fmt.Errorf("encrypt summary: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO super_memories (`+superColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, s.ID, s.UserID, summary, string(themes), string(topics), s.DominantEmotion,
		s.AverageIntensity, string(distJSON), string(sources), s.RangeStart, s.RangeEnd,
		s.Importance, s.CreatedAt, s.LastAccessed)
	if err != nil {
		return fmt.Errorf("create super memory: %w", err)
	}
	return nil
}

// RecentSuperMemories returns the newest super memories, newest first.
func (db *DB) RecentSuperMemories(userID string, limit int) ([]SuperMemory, error) {
	rows, err := db.Query(`
		SELECT `+superColumns+` FROM super_memories
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent super memories: %w", err)
	}
	defer rows.Close()

	var memories []SuperMemory
	for rows.Next() {
		s, err := db.scanSuper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan super memory: %w", err)
		}
		memories = append(memories, *s)
	}
	return memories, rows.Err()
}

// CountSuperMemories returns the super memory count for a user.
func (db *DB) CountSuperMemories(userID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM super_memories WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count super memories: %w", err)
	}
	return n, nil
}

func (db *DB) scanSuper(rows *sql.Rows) (*SuperMemory, error) {
	var s SuperMemory
	var summary, themes, topics, dist, sources string
	err := rows.Scan(&s.ID, &s.UserID, &summary, &themes, &topics, &s.DominantEmotion,
		&s.AverageIntensity, &dist, &sources, &s.RangeStart, &s.RangeEnd,
		&s.Importance, &s.CreatedAt, &s.LastAccessed, &s.AccessCount)
	if err != nil {
		return nil, err
	}
	s.Summary = db.decrypt(summary)
	json.Unmarshal([]byte(themes), &s.Themes)
	json.Unmarshal([]byte(topics), &s.Topics)
	json.Unmarshal([]byte(dist), &s.EmotionDistribution)
	json.Unmarshal([]byte(sources), &s.SourceMemoryIDs)
	return &s, nil
}
