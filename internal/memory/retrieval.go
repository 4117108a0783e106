package memory

import (
	"fmt"
	"strings"
	"time"
)

// BuildContext assembles the memory block injected into the system
// prompt: facts always, then recent micro memories filtered by decayed
// importance, then up to 3 long-term super memories. Pure read: no LLM
// call, no writes.
func (m *Manager) BuildContext(maxMicro int, relevanceThreshold float64) (string, error) {
	var lines []string

	facts, err := m.FactsPromptBlock()
	if err != nil {
		return "", fmt.Errorf("facts context: %w", err)
	}
	lines = append(lines, facts, "")

	minImportance := max(2.0, relevanceThreshold*10)
	recent, err := m.RecentMicro(maxMicro, minImportance, true)
	if err != nil {
		return "", fmt.Errorf("micro context: %w", err)
	}
	if len(recent) > 0 {
		lines = append(lines, "=== RECENT CONVERSATIONS ===")
		for _, mem := range recent {
			lines = append(lines,
				"",
				"Date: "+time.UnixMilli(mem.CreatedAt).UTC().Format("2006-01-02"),
				"Summary: "+mem.Summary,
				fmt.Sprintf("Importance: %.1f/10 (decaying from %.1f)", mem.CurrentImportance, mem.Importance),
			)
			if mem.Intensity > 0.5 {
				lines = append(lines,
					fmt.Sprintf("Emotion: %s (intensity: %.1f)", mem.PrimaryEmotion, mem.Intensity))
			}
		}
		lines = append(lines, "")
	}

	supers, err := m.db.RecentSuperMemories(m.userID, 3)
	if err != nil {
		return "", fmt.Errorf("super context: %w", err)
	}
	if len(supers) > 0 {
		lines = append(lines, "=== LONG-TERM PATTERNS ===")
		for _, mem := range supers {
			lines = append(lines,
				"",
				fmt.Sprintf("Period: %s to %s",
					time.UnixMilli(mem.RangeStart).UTC().Format("2006-01-02"),
					time.UnixMilli(mem.RangeEnd).UTC().Format("2006-01-02")),
				"Summary: "+mem.Summary,
			)
			if len(mem.Themes) > 0 {
				lines = append(lines, "Themes: "+strings.Join(mem.Themes, ", "))
			}
			if mem.DominantEmotion != "" && mem.DominantEmotion != "neutral" {
				lines = append(lines, "Emotional pattern: "+mem.DominantEmotion)
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n"), nil
}

// OpenThread finds one recent memory that looks unfinished or
// important, for proactive follow-up. Returns nil when nothing
// qualifies.
type OpenThread struct {
	Summary string
	Topic   string
}

func (m *Manager) OpenThread() (*OpenThread, error) {
	recent, err := m.RecentMicro(10, 4.0, true)
	if err != nil {
		return nil, err
	}
	for _, mem := range recent {
		if mem.CurrentImportance > 6.0 || mem.Intensity > 0.6 {
			topic := "recent conversation"
			if len(mem.Topics) > 0 {
				topic = mem.Topics[0]
			}
			return &OpenThread{Summary: mem.Summary, Topic: topic}, nil
		}
	}
	return nil, nil
}
