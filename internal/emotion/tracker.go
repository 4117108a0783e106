package emotion

import (
	"fmt"
)

// historyCap bounds the rolling emotional history per user.
const historyCap = 50

// Tracker keeps a rolling window of emotional snapshots for one user,
// plus the snapshots from the current session. It is not safe for
// concurrent use; the orchestrator serializes access per user.
type Tracker struct {
	history []Snapshot
	session []Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends a snapshot, evicting the oldest once the rolling
// window is full.
func (t *Tracker) Record(s Snapshot) {
	t.history = append(t.history, s)
	if len(t.history) > historyCap {
		t.history = t.history[len(t.history)-historyCap:]
	}
	t.session = append(t.session, s)
}

// History returns the rolling window, oldest first.
func (t *Tracker) History() []Snapshot {
	out := make([]Snapshot, len(t.history))
	copy(out, t.history)
	return out
}

// Len returns the number of snapshots in the rolling window.
func (t *Tracker) Len() int { return len(t.history) }

// CurrentState returns the state of the most recent snapshot, or
// "unknown" when nothing has been recorded.
func (t *Tracker) CurrentState() string {
	if len(t.history) == 0 {
		return "unknown"
	}
	return string(t.history[len(t.history)-1].State)
}

// SignificantEvent reports whether the last interaction crossed the
// high-intensity threshold.
func (t *Tracker) SignificantEvent() bool {
	if len(t.history) == 0 {
		return false
	}
	return t.history[len(t.history)-1].Intensity > 0.7
}

// Trend compares the mean intensity of the last 3 snapshots against the
// 3 before them. Fewer than 3 samples is "emerging"; differences within
// 0.2 are "stable", so the trend does not flap on noise.
func (t *Tracker) Trend() string {
	n := len(t.history)
	if n < 3 {
		return "emerging"
	}
	prevStart := n - 6
	if prevStart < 0 {
		prevStart = 0
	}
	prev := t.history[prevStart : n-3]
	if len(prev) == 0 {
		return "emerging"
	}

	recentAvg := meanIntensity(t.history[n-3:])
	prevAvg := meanIntensity(prev)

	switch {
	case recentAvg > prevAvg+0.2:
		return "intensifying"
	case recentAvg < prevAvg-0.2:
		return "calming"
	default:
		return "stable"
	}
}

// PatternSummary renders the recent emotional pattern as prompt text.
// Empty when there is too little history to say anything useful.
func (t *Tracker) PatternSummary() string {
	if len(t.history) < 3 {
		return ""
	}
	recent := t.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	avg := meanIntensity(recent)
	dominant := dominantEmotion(recent)

	return fmt.Sprintf(
		"Recent emotional pattern: %s (intensity: %.1f/1.0, trend: %s)\n"+
			"This helps you understand where they've been emotionally, not just this moment.",
		dominant, avg, t.Trend())
}

// LastInteraction returns a one-line note about the previous snapshot,
// for use in greetings. Empty with fewer than 2 samples.
func (t *Tracker) LastInteraction() string {
	if len(t.history) < 2 {
		return ""
	}
	last := t.history[len(t.history)-1]
	return fmt.Sprintf("Last interaction: %s (intensity: %.1f)", last.PrimaryEmotion, last.Intensity)
}

// SessionSummary describes the emotional journey of the current session.
type SessionSummary struct {
	EmotionRange     []string
	AvgIntensity     float64
	MaxIntensity     float64
	DominantEmotion  string
	InteractionCount int
}

// Session summarizes snapshots recorded since the last ResetSession.
// Returns nil when the session recorded nothing.
func (t *Tracker) Session() *SessionSummary {
	if len(t.session) == 0 {
		return nil
	}
	maxI := 0.0
	seen := make(map[string]bool)
	var emotions []string
	for _, s := range t.session {
		if s.Intensity > maxI {
			maxI = s.Intensity
		}
		if !seen[s.PrimaryEmotion] {
			seen[s.PrimaryEmotion] = true
			emotions = append(emotions, s.PrimaryEmotion)
		}
	}
	return &SessionSummary{
		EmotionRange:     emotions,
		AvgIntensity:     meanIntensity(t.session),
		MaxIntensity:     maxI,
		DominantEmotion:  dominantEmotion(t.session),
		InteractionCount: len(t.session),
	}
}

// ResetSession clears session-scoped snapshots. The rolling history
// survives across sessions.
func (t *Tracker) ResetSession() {
	t.session = nil
}

func meanIntensity(snaps []Snapshot) float64 {
	if len(snaps) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range snaps {
		sum += s.Intensity
	}
	return sum / float64(len(snaps))
}

func dominantEmotion(snaps []Snapshot) string {
	counts := make(map[string]int)
	best, bestCount := "neutral", 0
	for _, s := range snaps {
		counts[s.PrimaryEmotion]++
		if counts[s.PrimaryEmotion] > bestCount {
			best, bestCount = s.PrimaryEmotion, counts[s.PrimaryEmotion]
		}
	}
	return best
}
