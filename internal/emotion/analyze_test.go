package emotion

import "testing"

func TestAnalyzeNeutral(t *testing.T) {
	snap := Analyze("the weather report said rain at noon")
	if snap.PrimaryEmotion != "neutral" {
		t.Errorf("primary = %q, want neutral", snap.PrimaryEmotion)
	}
	if snap.State != StateNeutral {
		t.Errorf("state = %q, want neutral", snap.State)
	}
	if len(snap.Detected) != 0 {
		t.Errorf("detected = %v, want none", snap.Detected)
	}
}

func TestAnalyzeJoy(t *testing.T) {
	snap := Analyze("I am so happy today, it was wonderful")
	if snap.PrimaryEmotion != "joy" {
		t.Errorf("primary = %q, want joy", snap.PrimaryEmotion)
	}
	if snap.PrimaryIntensity <= 0.4 {
		t.Errorf("primary intensity = %v, want boosted above base", snap.PrimaryIntensity)
	}
	if snap.State != StatePositive && snap.State != StateManic {
		t.Errorf("state = %q, want positive", snap.State)
	}
}

func TestAnalyzeDepressedState(t *testing.T) {
	snap := Analyze("I feel so sad and so lonely, completely alone and empty")
	if snap.State != StateDepressed {
		t.Errorf("state = %q, want depressed", snap.State)
	}
	if !snap.RequiresFollowup {
		t.Error("expected followup for sadness")
	}
}

func TestAnalyzeAnxiousState(t *testing.T) {
	snap := Analyze("I'm so worried and really stressed about tomorrow")
	if snap.PrimaryEmotion != "anxiety" {
		t.Errorf("primary = %q, want anxiety", snap.PrimaryEmotion)
	}
	if snap.State != StateAnxious {
		t.Errorf("state = %q, want anxious", snap.State)
	}
}

func TestAnalyzeMixedState(t *testing.T) {
	snap := Analyze("I'm happy about the visit but sad it ended")
	if snap.State != StateMixed {
		t.Errorf("state = %q, want mixed", snap.State)
	}
}

func TestLinguisticMarkers(t *testing.T) {
	calm := Analyze("it went fine")
	loud := Analyze("IT WENT FINE!!! FINE I SAID!!! fine fine fine fine")
	if loud.Intensity <= calm.Intensity {
		t.Errorf("loud intensity %v <= calm %v", loud.Intensity, calm.Intensity)
	}
	if loud.Markers.Exclamations != 6 {
		t.Errorf("exclamations = %d, want 6", loud.Markers.Exclamations)
	}
	if loud.Markers.MaxRepetition < 4 {
		t.Errorf("repetition = %d, want >= 4", loud.Markers.MaxRepetition)
	}
}

func TestIntensityCapped(t *testing.T) {
	snap := Analyze("I am SO ANGRY and SO SAD and SO SCARED!!! WHY WHY WHY??? ANGRY ANGRY ANGRY")
	if snap.Intensity > 1.0 {
		t.Errorf("intensity = %v, want <= 1.0", snap.Intensity)
	}
}

func TestEmpathyThreshold(t *testing.T) {
	snap := Analyze("I feel so miserable and really hopeless!!!")
	if !snap.RequiresEmpathy {
		t.Errorf("intensity %v should require empathy", snap.Intensity)
	}
}
