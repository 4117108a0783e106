// Package emotion detects emotional signals in user messages and tracks
// them across a conversation. Detection is lexicon-based: fast,
// deterministic, and auditable, with no model call in the hot path.
package emotion

import (
	"strings"
	"time"
)

// State classifies the overall emotional character of a message.
type State string

const (
	StateNeutral   State = "neutral"
	StatePositive  State = "positive"
	StateNegative  State = "negative"
	StateAnxious   State = "anxious"
	StateDepressed State = "depressed"
	StateManic     State = "manic"
	StateMixed     State = "mixed"
)

// Snapshot is the result of analyzing a single message.
type Snapshot struct {
	Timestamp        time.Time
	PrimaryEmotion   string
	PrimaryIntensity float64
	Intensity        float64
	State            State
	Detected         []string
	Scores           map[string]float64
	RequiresEmpathy  bool
	RequiresFollowup bool
	Markers          Markers
}

// Markers holds the linguistic intensity signals found in a message.
type Markers struct {
	Exclamations  int
	Questions     int
	CapsRatio     float64
	MaxRepetition int
}

type pattern struct {
	keywords []string
	boosters []string
}

// Lexicon order is fixed so ties between equal-scoring emotions resolve
// deterministically.
var emotionOrder = []string{
	"joy", "sadness", "anxiety", "anger", "gratitude", "confusion", "loneliness", "hope",
}

var emotionPatterns = map[string]pattern{
	"joy": {
		keywords: []string{"happy", "joyful", "excited", "thrilled", "delighted",
			"wonderful", "amazing", "fantastic", "love"},
		boosters: []string{"so", "very", "extremely", "incredibly"},
	},
	"sadness": {
		keywords: []string{"sad", "depressed", "down", "blue", "unhappy",
			"miserable", "hopeless", "empty", "numb"},
		boosters: []string{"so", "very", "extremely", "really"},
	},
	"anxiety": {
		keywords: []string{"anxious", "worried", "nervous", "stressed", "scared",
			"afraid", "panic", "overwhelmed", "terrified"},
		boosters: []string{"so", "very", "extremely", "really"},
	},
	"anger": {
		keywords: []string{"angry", "mad", "furious", "frustrated", "irritated",
			"annoyed", "rage", "pissed"},
		boosters: []string{"so", "very", "extremely", "really"},
	},
	"gratitude": {
		keywords: []string{"thank", "grateful", "appreciate", "thankful",
			"blessed", "fortunate"},
		boosters: []string{"so", "very", "really"},
	},
	"confusion": {
		keywords: []string{"confused", "lost", "unclear", "don't understand",
			"bewildered", "puzzled"},
	},
	"loneliness": {
		keywords: []string{"lonely", "alone", "isolated", "abandoned",
			"disconnected", "nobody"},
		boosters: []string{"so", "very", "completely"},
	},
	"hope": {
		keywords: []string{"hope", "hopeful", "optimistic", "better",
			"improve", "looking forward"},
		boosters: []string{"really", "very"},
	},
}

var positiveEmotions = []string{"joy", "gratitude", "hope"}
var negativeEmotions = []string{"sadness", "anxiety", "anger", "loneliness"}

// Analyze scores a message against the emotion lexicon and linguistic
// intensity markers.
func Analyze(message string) Snapshot {
	lower := strings.ToLower(message)

	scores := make(map[string]float64)
	var detected []string
	intensity := 0.0

	for _, name := range emotionOrder {
		p := emotionPatterns[name]
		score := 0.0
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				score = 0.4
				for _, b := range p.boosters {
					if containsWord(lower, b) {
						score += 0.2
					}
				}
				break
			}
		}
		if score > 0 {
			scores[name] = min(score, 1.0)
			detected = append(detected, name)
			intensity += score
		}
	}

	m := Markers{
		Exclamations: strings.Count(message, "!"),
		Questions:    strings.Count(message, "?"),
	}
	intensity += min(float64(m.Exclamations)*0.15, 0.4)
	if m.Questions > 2 {
		intensity += 0.2
	}

	words := strings.Fields(message)
	if len(words) > 0 {
		caps := 0
		for _, w := range words {
			if len(w) > 2 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
				caps++
			}
		}
		m.CapsRatio = float64(caps) / float64(len(words))
		intensity += min(m.CapsRatio*0.6, 0.5)
	}

	m.MaxRepetition = maxWordRepetition(lower)
	if m.MaxRepetition > 1 {
		intensity += min(float64(m.MaxRepetition-1)*0.15, 0.3)
	}

	intensity = min(intensity, 1.0)

	primary := "neutral"
	primaryIntensity := 0.0
	for _, name := range emotionOrder {
		if s, ok := scores[name]; ok && s > primaryIntensity {
			primary = name
			primaryIntensity = s
		}
	}

	return Snapshot{
		Timestamp:        time.Now().UTC(),
		PrimaryEmotion:   primary,
		PrimaryIntensity: primaryIntensity,
		Intensity:        intensity,
		State:            classifyState(scores, intensity),
		Detected:         detected,
		Scores:           scores,
		RequiresEmpathy:  intensity > 0.5,
		RequiresFollowup: intensity > 0.7 || primary == "sadness" || primary == "anxiety" || primary == "loneliness",
		Markers:          m,
	}
}

func classifyState(scores map[string]float64, intensity float64) State {
	if len(scores) == 0 {
		return StateNeutral
	}
	if scores["sadness"] > 0.5 && scores["loneliness"] > 0.3 {
		return StateDepressed
	}
	if scores["anxiety"] > 0.5 {
		return StateAnxious
	}
	if scores["joy"] > 0.7 && intensity > 0.8 {
		return StateManic
	}

	hasPositive := anyPresent(scores, positiveEmotions)
	hasNegative := anyPresent(scores, negativeEmotions)
	switch {
	case hasPositive && hasNegative:
		return StateMixed
	case hasPositive:
		return StatePositive
	case hasNegative:
		return StateNegative
	}
	return StateNeutral
}

func anyPresent(scores map[string]float64, names []string) bool {
	for _, n := range names {
		if _, ok := scores[n]; ok {
			return true
		}
	}
	return false
}

// containsWord matches whole words only, so "so" never fires inside
// "sorry" or "sofa".
func containsWord(lower, word string) bool {
	for _, f := range strings.Fields(lower) {
		if strings.Trim(f, ".,!?;:'\"") == word {
			return true
		}
	}
	return false
}

func maxWordRepetition(lower string) int {
	counts := make(map[string]int)
	for _, w := range strings.Fields(lower) {
		if len(w) > 3 {
			counts[w]++
		}
	}
	best := 1
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	return best
}
