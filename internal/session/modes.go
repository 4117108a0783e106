package session

import (
	"time"

	"github.com/jwhitt/kindred/internal/emotion"
	"github.com/jwhitt/kindred/internal/safety"
)

// Mode is the conversation posture for the current exchange. It is
// recomputed from scratch on every message so a crisis can never be
// masked by a previously relaxed mode.
type Mode string

const (
	ModeNormal      Mode = "normal"
	ModeCrisis      Mode = "crisis"
	ModeFollowUp    Mode = "follow_up"
	ModeTherapeutic Mode = "therapeutic"
	ModeProactive   Mode = "proactive"
)

// proactiveCooldown throttles how often the companion volunteers a
// topic instead of following the user's lead.
const proactiveCooldown = 5 * time.Minute

func selectMode(assessment safety.Assessment, snap emotion.Snapshot, intent Intent,
	exchanges int, lastProactive time.Time, now time.Time) Mode {

	if assessment.RequiresIntervention {
		return ModeCrisis
	}
	if (assessment.Level == safety.LevelLow || assessment.Level == safety.LevelMedium) &&
		assessment.RequiresFollowup {
		return ModeFollowUp
	}
	if snap.Intensity > 0.6 &&
		(intent.Primary == "deep_sharing" || intent.Primary == "value_exploration") {
		return ModeTherapeutic
	}
	if shouldBeProactive(snap, exchanges, lastProactive, now) {
		return ModeProactive
	}
	return ModeNormal
}

func shouldBeProactive(snap emotion.Snapshot, exchanges int, lastProactive, now time.Time) bool {
	if !lastProactive.IsZero() && now.Sub(lastProactive) < proactiveCooldown {
		return false
	}
	if snap.Intensity > 0.7 {
		return false
	}
	return exchanges >= 3 &&
		(snap.State == emotion.StateNeutral || snap.State == emotion.StatePositive)
}
