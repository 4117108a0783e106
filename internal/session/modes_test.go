package session

import (
	"testing"
	"time"

	"github.com/jwhitt/kindred/internal/emotion"
	"github.com/jwhitt/kindred/internal/safety"
)

func TestSelectModeCrisisFirst(t *testing.T) {
	assessment := safety.Assessment{
		Level:                safety.LevelCritical,
		RequiresIntervention: true,
		RequiresFollowup:     true,
	}
	snap := emotion.Snapshot{Intensity: 0.9, State: emotion.StateDepressed}
	intent := Intent{Primary: "deep_sharing"}

	mode := selectMode(assessment, snap, intent, 10, time.Time{}, time.Now())
	if mode != ModeCrisis {
		t.Errorf("mode = %s, want crisis", mode)
	}
}

func TestSelectModeFollowUp(t *testing.T) {
	assessment := safety.Assessment{
		Level:            safety.LevelMedium,
		RequiresFollowup: true,
	}
	snap := emotion.Snapshot{Intensity: 0.4, State: emotion.StateNegative}

	mode := selectMode(assessment, snap, Intent{Primary: "conversation"}, 2, time.Time{}, time.Now())
	if mode != ModeFollowUp {
		t.Errorf("mode = %s, want follow_up", mode)
	}
}

func TestSelectModeTherapeutic(t *testing.T) {
	snap := emotion.Snapshot{Intensity: 0.7, State: emotion.StateNegative}
	mode := selectMode(safety.Assessment{}, snap, Intent{Primary: "deep_sharing"}, 1, time.Time{}, time.Now())
	if mode != ModeTherapeutic {
		t.Errorf("mode = %s, want therapeutic", mode)
	}
}

func TestSelectModeProactive(t *testing.T) {
	snap := emotion.Snapshot{Intensity: 0.2, State: emotion.StateNeutral}
	intent := Intent{Primary: "conversation"}
	now := time.Now()

	mode := selectMode(safety.Assessment{}, snap, intent, 4, time.Time{}, now)
	if mode != ModeProactive {
		t.Errorf("mode = %s, want proactive", mode)
	}

	// Cooldown suppresses back-to-back proactive turns.
	mode = selectMode(safety.Assessment{}, snap, intent, 4, now.Add(-time.Minute), now)
	if mode != ModeNormal {
		t.Errorf("mode during cooldown = %s, want normal", mode)
	}

	// Early in the conversation the companion follows, not leads.
	mode = selectMode(safety.Assessment{}, snap, intent, 2, time.Time{}, now)
	if mode != ModeNormal {
		t.Errorf("mode early in conversation = %s, want normal", mode)
	}

	// High intensity is never a proactive moment.
	hot := emotion.Snapshot{Intensity: 0.8, State: emotion.StatePositive}
	mode = selectMode(safety.Assessment{}, hot, intent, 4, time.Time{}, now)
	if mode != ModeNormal {
		t.Errorf("mode at high intensity = %s, want normal", mode)
	}
}

func TestSelectModeNormalDefault(t *testing.T) {
	snap := emotion.Snapshot{Intensity: 0.3, State: emotion.StateNegative}
	mode := selectMode(safety.Assessment{}, snap, Intent{Primary: "conversation"}, 4, time.Time{}, time.Now())
	if mode != ModeNormal {
		t.Errorf("mode = %s, want normal", mode)
	}
}
