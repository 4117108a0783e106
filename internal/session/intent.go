package session

import (
	"sort"
	"strings"
)

// Intent is the result of classifying what a message is trying to do,
// plus the response posture it calls for.
type Intent struct {
	Primary    string
	Detected   []string
	Style      string
	Depth      string
	Thoughtful bool
}

type intentPattern struct {
	name     string
	priority int
	markers  []string
}

// Patterns are checked in declaration order; ties in priority resolve
// to the earlier pattern.
var intentPatterns = []intentPattern{
	{"question", 7, []string{"what", "how", "why", "when", "where", "who", "can you", "?"}},
	{"deep_sharing", 9, []string{"i feel", "i've been feeling", "i think", "i believe",
		"my life", "lately i", "i've been"}},
	{"request", 8, []string{"can you", "could you", "please", "help me", "i need"}},
	{"value_exploration", 9, []string{"what matters", "important to me", "i value",
		"i care about", "meaningful", "purpose"}},
	{"crisis_signal", 10, []string{"can't do this", "give up", "no point", "end it",
		"don't want to live", "hurt myself"}},
	{"gratitude", 6, []string{"thank you", "thanks", "appreciate", "grateful"}},
	{"greeting", 5, []string{"hello", "hi", "hey", "good morning", "good evening"}},
	{"goodbye", 5, []string{"bye", "goodbye", "see you", "talk later", "gotta go"}},
	{"venting", 7, []string{"ugh", "god", "so frustrated", "i hate", "annoying",
		"drives me crazy"}},
	{"update_sharing", 6, []string{"today", "just", "so i", "guess what", "you know what"}},
	{"seeking_validation", 8, []string{"am i", "do you think i", "is it okay",
		"is it wrong", "should i feel"}},
}

var thoughtfulIntents = map[string]bool{
	"deep_sharing":       true,
	"value_exploration":  true,
	"crisis_signal":      true,
	"seeking_validation": true,
}

// ClassifyIntent detects what the message is doing and derives the
// response style and depth from the intent and emotional intensity.
func ClassifyIntent(message string, intensity float64) Intent {
	lower := strings.ToLower(message)

	type hit struct {
		name     string
		priority int
	}
	var hits []hit
	for _, p := range intentPatterns {
		for _, marker := range p.markers {
			if strings.Contains(lower, marker) {
				hits = append(hits, hit{p.name, p.priority})
				break
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].priority > hits[j].priority })

	primary := "conversation"
	detected := make([]string, 0, len(hits))
	for _, h := range hits {
		detected = append(detected, h.name)
	}
	if len(hits) > 0 {
		primary = hits[0].name
	}

	return Intent{
		Primary:    primary,
		Detected:   detected,
		Style:      responseStyle(primary, intensity),
		Depth:      responseDepth(primary, intensity),
		Thoughtful: thoughtfulIntents[primary],
	}
}

func responseStyle(primary string, intensity float64) string {
	switch primary {
	case "crisis_signal":
		return "crisis_supportive"
	case "deep_sharing", "value_exploration":
		return "empathetic_reflective"
	case "question":
		if intensity > 0.5 {
			return "supportive_informative"
		}
		return "clear_informative"
	case "venting":
		return "validating_spacious"
	default:
		return "relational_conversational"
	}
}

func responseDepth(primary string, intensity float64) string {
	switch {
	case primary == "deep_sharing" || primary == "value_exploration" ||
		primary == "seeking_validation" || intensity > 0.6:
		return "deep"
	case primary == "question" || primary == "request":
		return "medium"
	default:
		return "brief"
	}
}
