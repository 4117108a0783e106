package memory

import (
	"math"
	"testing"

	"github.com/jwhitt/kindred/internal/store"
)

func TestExtractTopicsUserMessagesOnly(t *testing.T) {
	messages := []store.Message{
		{Role: "user", Content: "My job has been stressful and my dog is sick"},
		{Role: "assistant", Content: "How is your exercise routine going?"},
		{Role: "user", Content: "I feel worn out"},
	}
	topics := ExtractTopics(messages)

	want := []string{"work", "emotions", "pets"}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i, topic := range want {
		if topics[i] != topic {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i], topic)
		}
	}
}

func TestExtractTopicsEmpty(t *testing.T) {
	topics := ExtractTopics([]store.Message{
		{Role: "user", Content: "lovely weather today"},
	})
	if len(topics) != 0 {
		t.Errorf("topics = %v, want none", topics)
	}
}

func TestSessionEmotionMajority(t *testing.T) {
	primary, intensity := sessionEmotion([]store.Message{
		{Role: "user", Content: "I'm so sad today"},
		{Role: "user", Content: "happy about one thing at least"},
		{Role: "user", Content: "but mostly feeling down"},
	})
	if primary != "negative" {
		t.Errorf("primary = %q, want negative", primary)
	}
	want := (0.7 + 0.6 + 0.7) / 3
	if math.Abs(intensity-want) > 0.001 {
		t.Errorf("intensity = %v, want %v", intensity, want)
	}
}

func TestSessionEmotionNeutral(t *testing.T) {
	primary, intensity := sessionEmotion([]store.Message{
		{Role: "user", Content: "tell me about birds"},
	})
	if primary != "neutral" || intensity != 0 {
		t.Errorf("got %q/%v, want neutral/0", primary, intensity)
	}
}

func TestSessionImportance(t *testing.T) {
	cases := []struct {
		name      string
		intensity float64
		topics    []string
		msgCount  int
		want      float64
	}{
		{"baseline", 0, nil, 4, 5.0},
		{"emotional", 0.7, nil, 4, 7.0},
		{"values weighted", 0, []string{"values"}, 4, 7.0},
		{"topic cap", 0, []string{"work", "pets", "health", "hobbies", "goals"}, 4, 7.0},
		{"long session", 0, nil, 25, 6.0},
		{"everything capped", 0.9, []string{"values", "work", "emotions"}, 30, 10.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sessionImportance(tc.intensity, tc.topics, tc.msgCount)
			if math.Abs(got-tc.want) > 0.001 {
				t.Errorf("importance = %v, want %v", got, tc.want)
			}
		})
	}
}
