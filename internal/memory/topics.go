package memory

import (
	"strings"

	"github.com/jwhitt/kindred/internal/store"
)

// topicOrder fixes iteration order so extracted topic lists are stable.
var topicOrder = []string{
	"work", "relationships", "health", "hobbies", "emotions", "pets", "goals", "values",
}

var topicMap = map[string][]string{
	"work":          {"work", "job", "career", "office", "project", "meeting"},
	"relationships": {"friend", "family", "partner", "relationship", "dating"},
	"health":        {"health", "doctor", "medicine", "exercise", "sleep"},
	"hobbies":       {"hobby", "game", "movie", "book", "music", "sport"},
	"emotions":      {"feel", "emotion", "mood", "anxiety", "depression"},
	"pets":          {"dog", "cat", "pet", "animal"},
	"goals":         {"goal", "plan", "dream", "ambition", "aspiration"},
	"values":        {"value", "important", "matter", "meaningful", "purpose"},
}

// ExtractTopics scans a session's user messages for topic keywords.
func ExtractTopics(messages []store.Message) []string {
	var parts []string
	for _, m := range messages {
		if m.Role == "user" {
			parts = append(parts, strings.ToLower(m.Content))
		}
	}
	text := strings.Join(parts, " ")

	var topics []string
	for _, topic := range topicOrder {
		for _, kw := range topicMap[topic] {
			if strings.Contains(text, kw) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// sessionEmotion is the coarse per-session emotional rollup stored on a
// micro memory. This is deliberately simpler than the per-message
// analyzer: it only needs to label the session as a whole.
func sessionEmotion(messages []store.Message) (primary string, intensity float64) {
	var labels []string
	var intensities []float64

	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		lower := strings.ToLower(m.Content)
		switch {
		case containsAny(lower, "sad", "upset", "depressed", "down"):
			labels = append(labels, "negative")
			intensities = append(intensities, 0.7)
		case containsAny(lower, "happy", "great", "excited", "wonderful"):
			labels = append(labels, "positive")
			intensities = append(intensities, 0.6)
		case containsAny(lower, "worried", "anxious", "nervous", "scared"):
			labels = append(labels, "anxious")
			intensities = append(intensities, 0.7)
		}
	}

	if len(labels) == 0 {
		return "neutral", 0.0
	}

	counts := make(map[string]int)
	best, bestCount := labels[0], 0
	for _, l := range labels {
		counts[l]++
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	sum := 0.0
	for _, i := range intensities {
		sum += i
	}
	return best, sum / float64(len(intensities))
}

// sessionImportance scores a session 1-10 from its emotional weight,
// topics, and length.
func sessionImportance(intensity float64, topics []string, messageCount int) float64 {
	importance := 5.0
	if intensity > 0.5 {
		importance += 2.0
	}
	for _, t := range topics {
		if t == "values" {
			importance += 1.5
			break
		}
	}
	importance += min(float64(len(topics))*0.5, 2.0)
	if messageCount > 20 {
		importance += 1.0
	}
	return min(importance, 10.0)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
