// Package safety assesses crisis risk in user messages. The assessment
// is deliberately rule-based: every escalation must be explainable from
// the message text, the emotional signal, and recent history, and risk
// can only move upward within a single assessment.
package safety

import (
	"fmt"
	"log"
	"strings"

	"github.com/jwhitt/kindred/internal/emotion"
)

// Level is a risk tier. Higher values are more severe.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "none"
	}
}

// Intervention is the response posture matched to a risk level.
type Intervention string

const (
	InterventionNone           Intervention = "none"
	InterventionGentleCheckIn  Intervention = "gentle_check_in"
	InterventionDirectConcern  Intervention = "direct_concern"
	InterventionCrisisResponse Intervention = "crisis_response"
	InterventionEmergency      Intervention = "emergency_resources"
)

// Assessment is the full result of one safety evaluation.
type Assessment struct {
	Level                Level
	Score                float64
	Concerns             []string
	Triggers             []string
	Intervention         Intervention
	RequiresIntervention bool
	RequiresFollowup     bool
	EmergencySuggested   bool
	MultipliersPresent   bool
}

type keywordTier struct {
	level   Level
	concern string
	label   string
	weight  float64
	phrases []string
}

// Tiers are ordered most severe first; the first phrase hit in the
// first matching tier sets the baseline and later tiers are skipped.
var keywordTiers = []keywordTier{
	{
		level:   LevelCritical,
		concern: "immediate_suicide_risk",
		label:   "critical",
		weight:  10.0,
		phrases: []string{
			"kill myself", "end my life", "suicide", "want to die",
			"going to kill myself", "plan to die", "planning to die",
			"going to end it", "end it all tonight", "end it all today",

			"snuff myself", "do myself in", "top myself", "off myself",
			"end it", "finish it", "done with life",

			"jump off", "overdose", "pills and", "cut my wrists",
			"hang myself", "hanging myself",

			"goodbye forever", "last time", "won't be here tomorrow",
			"this is it", "final message", "saying goodbye",
		},
	},
	{
		level:   LevelHigh,
		concern: "high_suicide_risk",
		label:   "high",
		weight:  7.0,
		phrases: []string{
			"don't want to live", "can't go on", "no reason to live",
			"better off dead", "world better without me",
			"shouldn't be here", "wish i was dead", "wish i wasn't here",
			"don't want to be here anymore", "can't do this anymore",
			"too much to bear", "can't take it anymore",

			"rather be dead", "had enough of life", "done with it all",
			"can't cope", "end of my tether", "at the end",

			"burden on everyone", "burden to", "everyone better off",
			"tired of being a burden", "they'd be better without me",
		},
	},
	{
		level:   LevelMedium,
		concern: "self_harm_risk",
		label:   "medium",
		weight:  5.0,
		phrases: []string{
			"hurt myself", "harm myself", "cut myself", "cutting myself",
			"burn myself", "punish myself", "self harm", "self-harm",
			"hate myself", "worthless", "piece of shit", "waste of space",
			"hopeless", "no hope", "give up", "giving up",
			"pointless", "no point", "what's the point",
			"can't see a way out", "trapped", "no escape", "no future",
			"nothing left", "empty inside", "numb", "dead inside",
		},
	},
	{
		level:   LevelLow,
		concern: "suicidal_ideation",
		label:   "ideation",
		weight:  3.0,
		phrases: []string{
			"wish i was dead", "wish i wasn't here", "shouldn't exist",
			"world better without me", "disappear", "fade away",
			"stop existing", "not be here", "be gone",
		},
	},
}

// Multipliers are contextual amplifiers. Each matched category adds to
// the score and escalates medium or high by exactly one step.
var multiplierOrder = []string{"substances", "isolation", "finality", "means"}

var multipliers = map[string][]string{
	"substances": {"drunk", "drinking", "high", "pills", "alcohol", "drugs"},
	"isolation":  {"alone", "no one", "nobody", "by myself", "isolated"},
	"finality":   {"goodbye", "last", "final", "forever", "never again"},
	"means":      {"gun", "pills", "bridge", "rope", "blade", "knife"},
}

// Assessor evaluates messages for one user.
type Assessor struct {
	userID string
}

func NewAssessor(userID string) *Assessor {
	return &Assessor{userID: userID}
}

// Assess runs the full rule pipeline: keyword tiers, context
// multipliers, intensity amplification, then history patterns. A panic
// anywhere inside fails toward caution, never toward silence.
func (a *Assessor) Assess(message string, intensity float64, history []emotion.Snapshot) (assessment Assessment) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("safety assessment panic for user %s: %v", a.userID, r)
			assessment = failsafe()
		}
	}()

	text := strings.ToLower(message)
	out := Assessment{Level: LevelNone}

	// Phase 1: keyword tiers, most severe first.
	for _, tier := range keywordTiers {
		matched := false
		for _, phrase := range tier.phrases {
			if strings.Contains(text, phrase) {
				out.Level = tier.level
				out.Concerns = append(out.Concerns, tier.concern)
				out.Triggers = append(out.Triggers, fmt.Sprintf("%s: %q", tier.label, phrase))
				out.Score += tier.weight
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	// Phase 2: context multipliers.
	for _, category := range multiplierOrder {
		found := false
		for _, kw := range multipliers[category] {
			if strings.Contains(text, kw) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		out.MultipliersPresent = true
		out.Triggers = append(out.Triggers, "multiplier: "+category)
		out.Score += 2.0

		switch out.Level {
		case LevelMedium:
			out.Level = LevelHigh
			log.Printf("safety: user %s escalated to high (%s)", a.userID, category)
		case LevelHigh:
			out.Level = LevelCritical
			log.Printf("safety: user %s escalated to critical (%s)", a.userID, category)
		}
	}

	// Phase 3: emotional intensity amplification.
	if intensity > 0.8 {
		out.Score += 2.0
		out.Triggers = append(out.Triggers, fmt.Sprintf("high_emotional_intensity: %.2f", intensity))

		if out.Level == LevelMedium {
			out.Level = LevelHigh
		} else if out.Level == LevelHigh && intensity > 0.9 {
			out.Level = LevelCritical
		}
	}

	// Phase 4: patterns from recent emotional history.
	if len(history) >= 3 {
		recent := history[len(history)-3:]
		depressed := 0
		for _, s := range recent {
			if s.State == emotion.StateDepressed {
				depressed++
			}
		}
		if depressed >= 2 {
			out.Concerns = append(out.Concerns, "persistent_depression_pattern")
			out.Triggers = append(out.Triggers, "pattern: persistent depression")
			if out.Level == LevelMedium {
				out.Level = LevelHigh
			}
		}

		if (recent[0].State == emotion.StateAnxious || recent[1].State == emotion.StateAnxious) &&
			recent[2].State == emotion.StateDepressed {
			out.Triggers = append(out.Triggers, "pattern: anxiety to depression shift")
			out.Score += 1.0
		}
	}

	out.Intervention = selectIntervention(out.Level, out.MultipliersPresent)
	out.RequiresIntervention = out.Level >= LevelHigh
	out.RequiresFollowup = out.Level == LevelMedium || out.Level == LevelLow
	out.EmergencySuggested = out.Level == LevelCritical

	if out.Level != LevelNone {
		log.Printf("safety: user %s risk=%s score=%.1f triggers=%d",
			a.userID, out.Level, out.Score, len(out.Triggers))
	}
	return out
}

func selectIntervention(level Level, hasMultipliers bool) Intervention {
	switch level {
	case LevelCritical:
		return InterventionEmergency
	case LevelHigh:
		if hasMultipliers {
			return InterventionEmergency
		}
		return InterventionCrisisResponse
	case LevelMedium:
		return InterventionDirectConcern
	case LevelLow:
		return InterventionGentleCheckIn
	default:
		return InterventionNone
	}
}

// failsafe is the assessment returned when evaluation itself breaks:
// assume risk rather than assume none.
func failsafe() Assessment {
	return Assessment{
		Level:                LevelHigh,
		Concerns:             []string{"assessment_error"},
		Intervention:         InterventionCrisisResponse,
		RequiresIntervention: true,
		RequiresFollowup:     true,
		EmergencySuggested:   true,
	}
}
