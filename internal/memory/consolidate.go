package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jwhitt/kindred/internal/store"
)

// superImportance is the fixed importance of a freshly consolidated
// super memory.
const superImportance = 7.0

// minConsolidationImportance filters trivia out of consolidation
// batches. Stored (undecayed) importance is used so old but meaningful
// sessions still consolidate.
const minConsolidationImportance = 2.0

// themeOrder fixes theme iteration for stable output.
var themeOrder = []string{
	"personal_growth", "relationships", "work_career", "health_wellness", "emotions", "hobbies_interests",
}

var themeKeywords = map[string][]string{
	"personal_growth":   {"growth", "learning", "change", "progress", "development"},
	"relationships":     {"friend", "family", "partner", "relationship", "social"},
	"work_career":       {"work", "job", "career", "project", "professional"},
	"health_wellness":   {"health", "exercise", "wellness", "sleep", "fitness"},
	"emotions":          {"feeling", "emotion", "mood", "stress", "anxiety", "happiness"},
	"hobbies_interests": {"hobby", "interest", "passion", "enjoy", "fun"},
}

// Consolidate rolls a batch of micro memories into one super memory.
// Returns "" with no error when the batch is not yet full. The super
// memory is written before any source is marked consumed, so a failure
// partway never loses micro memories.
func (m *Manager) Consolidate(ctx context.Context) (string, error) {
	batch, err := m.RecentMicro(consolidationThreshold, minConsolidationImportance, false)
	if err != nil {
		return "", fmt.Errorf("select consolidation batch: %w", err)
	}
	if len(batch) < consolidationThreshold {
		log.Printf("memory: not enough micro memories to consolidate (%d/%d)",
			len(batch), consolidationThreshold)
		return "", nil
	}

	log.Printf("memory: consolidating %d micro memories for user %s", len(batch), m.userID)

	summary, err := m.sum.Consolidate(ctx, consolidationPrompt(batch))
	if err != nil {
		return "", fmt.Errorf("generate consolidation: %w", err)
	}

	dominant, avgIntensity, distribution := emotionalPatterns(batch)

	super := &store.SuperMemory{
		ID:                  ulid.Make().String(),
		UserID:              m.userID,
		Summary:             summary,
		Themes:              extractThemes(batch),
		Topics:              topTopics(batch, 10),
		DominantEmotion:     dominant,
		AverageIntensity:    avgIntensity,
		EmotionDistribution: distribution,
		Importance:          superImportance,
	}
	for _, mem := range batch {
		super.SourceMemoryIDs = append(super.SourceMemoryIDs, mem.ID)
		if super.RangeStart == 0 || mem.CreatedAt < super.RangeStart {
			super.RangeStart = mem.CreatedAt
		}
		if mem.CreatedAt > super.RangeEnd {
			super.RangeEnd = mem.CreatedAt
		}
	}

	if err := m.db.CreateSuperMemory(super); err != nil {
		return "", fmt.Errorf("store super memory: %w", err)
	}
	if err := m.db.MarkConsolidated(m.userID, super.SourceMemoryIDs); err != nil {
		return "", fmt.Errorf("mark consolidated: %w", err)
	}

	log.Printf("memory: consolidation complete, super memory %s", super.ID)
	return super.ID, nil
}

// ForceConsolidate triggers a consolidation pass by hand, optionally
// raising the importance of the pending batch first (for emotionally
// significant stretches worth preserving at higher weight). The usual
// batch rules still apply.
func (m *Manager) ForceConsolidate(ctx context.Context, boost float64) (string, error) {
	if boost > 0 {
		batch, err := m.RecentMicro(consolidationThreshold, minConsolidationImportance, false)
		if err != nil {
			return "", fmt.Errorf("select boost batch: %w", err)
		}
		for _, mem := range batch {
			if err := m.db.BoostImportance(m.userID, mem.ID, boost); err != nil {
				return "", fmt.Errorf("boost %s: %w", mem.ID, err)
			}
		}
	}
	return m.Consolidate(ctx)
}

func consolidationPrompt(batch []RankedMemory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Consolidate these %d conversation summaries into a single super memory:\n", len(batch))

	for i, mem := range batch {
		fmt.Fprintf(&b, "\n=== Session %d ===\n", i+1)
		fmt.Fprintf(&b, "Date: %s\n", time.UnixMilli(mem.CreatedAt).UTC().Format("2006-01-02"))
		fmt.Fprintf(&b, "Summary: %s\n", mem.Summary)
		fmt.Fprintf(&b, "Topics: %s", strings.Join(mem.Topics, ", "))
		if mem.Intensity > 0 {
			fmt.Fprintf(&b, "\nEmotion: %s (intensity: %.1f)", mem.PrimaryEmotion, mem.Intensity)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n\nProvide a consolidated summary covering:\n")
	b.WriteString("- Main themes and patterns\n")
	b.WriteString("- Emotional journey\n")
	b.WriteString("- Key topics of interest\n")
	b.WriteString("- Any notable changes or growth")
	return b.String()
}

// extractThemes returns themes whose keywords appear in at least 2
// batch summaries.
func extractThemes(batch []RankedMemory) []string {
	counts := make(map[string]int)
	for _, mem := range batch {
		lower := strings.ToLower(mem.Summary)
		for _, theme := range themeOrder {
			for _, kw := range themeKeywords[theme] {
				if strings.Contains(lower, kw) {
					counts[theme]++
					break
				}
			}
		}
	}

	var themes []string
	for _, theme := range themeOrder {
		if counts[theme] >= 2 {
			themes = append(themes, theme)
		}
	}
	return themes
}

// topTopics returns the batch's topics ordered by frequency, capped.
func topTopics(batch []RankedMemory, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, mem := range batch {
		for _, topic := range mem.Topics {
			if counts[topic] == 0 {
				order = append(order, topic)
			}
			counts[topic]++
		}
	}

	// Stable sort keeps first-seen order among equal counts.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

func emotionalPatterns(batch []RankedMemory) (dominant string, avg float64, distribution map[string]int) {
	distribution = make(map[string]int)
	sum := 0.0
	n := 0
	bestCount := 0
	dominant = "neutral"

	for _, mem := range batch {
		if mem.PrimaryEmotion == "" {
			continue
		}
		distribution[mem.PrimaryEmotion]++
		sum += mem.Intensity
		n++
		if distribution[mem.PrimaryEmotion] > bestCount {
			dominant = mem.PrimaryEmotion
			bestCount = distribution[mem.PrimaryEmotion]
		}
	}
	if n > 0 {
		avg = sum / float64(n)
	}
	return dominant, avg, distribution
}
