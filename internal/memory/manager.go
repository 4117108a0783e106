// Package memory implements the multi-tier memory system: durable
// facts, per-session micro memories with a forgetting curve, and
// consolidated super memories.
package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/store"
)

// consolidationThreshold is how many unconsolidated micro memories
// trigger a consolidation pass.
const consolidationThreshold = 10

// Manager coordinates the memory tiers for one user. It is stateless
// apart from its handles; the conversation transcript lives with the
// session orchestrator and is passed in at session end.
type Manager struct {
	db     *store.DB
	userID string
	sum    *llm.Summarizer
}

func NewManager(db *store.DB, userID string, sum *llm.Summarizer) *Manager {
	return &Manager{db: db, userID: userID, sum: sum}
}

func (m *Manager) UserID() string { return m.userID }

// RankedMemory is a micro memory with its read-time decayed importance.
type RankedMemory struct {
	store.MicroMemory
	CurrentImportance float64
}

// RecentMicro returns unconsolidated micro memories filtered by
// importance and sorted by it, highest first. With applyDecay the
// forgetting curve is applied before filtering; the stored importance
// is never mutated.
func (m *Manager) RecentMicro(limit int, minImportance float64, applyDecay bool) ([]RankedMemory, error) {
	// Fetch extra so decay filtering can still fill the limit.
	rows, err := m.db.UnconsolidatedMicroMemories(m.userID, limit*2)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var ranked []RankedMemory
	for _, mem := range rows {
		current := mem.Importance
		if applyDecay {
			current = DecayedImportance(mem.Importance, mem.CreatedAt, now)
		}
		if current >= minImportance {
			ranked = append(ranked, RankedMemory{MicroMemory: mem, CurrentImportance: current})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CurrentImportance > ranked[j].CurrentImportance
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// EndSession turns a finished conversation into a micro memory:
// summary, emotional rollup, topics, and importance. Sessions shorter
// than 2 messages leave no memory. Returns the new memory's ID, or ""
// when nothing was recorded.
func (m *Manager) EndSession(ctx context.Context, messages []store.Message, reason string) (string, error) {
	if len(messages) < 2 {
		log.Printf("memory: session too short to record for user %s (reason: %s)", m.userID, reason)
		return "", nil
	}

	transcript := renderTranscript(messages, 20)
	summary := m.sum.SessionSummary(ctx, transcript, len(messages))

	primary, intensity := sessionEmotion(messages)
	topics := ExtractTopics(messages)
	importance := sessionImportance(intensity, topics, len(messages))

	mem := &store.MicroMemory{
		ID:             ulid.Make().String(),
		UserID:         m.userID,
		Summary:        summary,
		Messages:       messages,
		PrimaryEmotion: primary,
		Intensity:      intensity,
		Topics:         topics,
		Importance:     importance,
	}
	if err := m.db.CreateMicroMemory(mem); err != nil {
		return "", fmt.Errorf("record session: %w", err)
	}

	// Harvest durable facts from what the user said. Extraction failure
	// never loses the session memory.
	for _, msg := range messages {
		if msg.Role == "user" {
			if _, err := m.ExtractFacts(msg.Content); err != nil {
				log.Printf("memory: fact extraction failed for user %s: %v", m.userID, err)
				break
			}
		}
	}

	ready, err := m.ConsolidationReady()
	if err != nil {
		log.Printf("memory: consolidation check failed for user %s: %v", m.userID, err)
	} else if ready {
		if _, err := m.Consolidate(ctx); err != nil {
			log.Printf("memory: consolidation failed for user %s: %v", m.userID, err)
		}
	}

	return mem.ID, nil
}

// ConsolidationReady reports whether enough unconsolidated micro
// memories have accumulated.
func (m *Manager) ConsolidationReady() (bool, error) {
	n, err := m.db.UnconsolidatedCount(m.userID)
	if err != nil {
		return false, err
	}
	return n >= consolidationThreshold, nil
}

// Cleanup deletes consolidated micro memories older than daysThreshold
// whose decayed importance has dropped below the deletion floor.
// Returns the number deleted.
func (m *Manager) Cleanup(daysThreshold int) (int, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -daysThreshold).UnixMilli()

	candidates, err := m.db.ConsolidatedBefore(m.userID, cutoff)
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, mem := range candidates {
		if DecayedImportance(mem.Importance, mem.CreatedAt, now) < deleteThreshold {
			ids = append(ids, mem.ID)
		}
	}
	return m.db.DeleteMicroMemories(m.userID, ids)
}

// Stats summarizes the memory tiers for one user.
type Stats struct {
	Facts          int `json:"facts"`
	MicroMemories  int `json:"micro_memories"`
	Unconsolidated int `json:"unconsolidated"`
	SuperMemories  int `json:"super_memories"`
}

func (m *Manager) Stats() (*Stats, error) {
	facts, err := m.db.CountFacts(m.userID)
	if err != nil {
		return nil, err
	}
	micro, err := m.db.CountMicroMemories(m.userID)
	if err != nil {
		return nil, err
	}
	unconsolidated, err := m.db.UnconsolidatedCount(m.userID)
	if err != nil {
		return nil, err
	}
	super, err := m.db.CountSuperMemories(m.userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Facts:          facts,
		MicroMemories:  micro,
		Unconsolidated: unconsolidated,
		SuperMemories:  super,
	}, nil
}

func renderTranscript(messages []store.Message, last int) string {
	if len(messages) > last {
		messages = messages[len(messages)-last:]
	}
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}
