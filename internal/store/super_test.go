package store

import "testing"

func TestCreateAndListSuperMemory(t *testing.T) {
	db := testDB(t)

	s := &SuperMemory{
		ID:               "s1",
		UserID:           "u1",
		Summary:          "a stretch of conversations about family and loss",
		Themes:           []string{"relationships", "health"},
		Topics:           []string{"family", "doctor"},
		DominantEmotion:  "sadness",
		AverageIntensity: 0.55,
		EmotionDistribution: map[string]int{
			"sadness": 6,
			"joy":     4,
		},
		SourceMemoryIDs: []string{"m1", "m2"},
		RangeStart:      1000,
		RangeEnd:        2000,
		Importance:      7.0,
	}
	if err := db.CreateSuperMemory(s); err != nil {
		t.Fatalf("CreateSuperMemory: %v", err)
	}

	list, err := db.RecentSuperMemories("u1", 10)
	if err != nil {
		t.Fatalf("RecentSuperMemories: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}

	got := list[0]
	if got.Summary != s.Summary {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.Themes) != 2 || got.Themes[0] != "relationships" {
		t.Errorf("themes = %v", got.Themes)
	}
	if got.EmotionDistribution["sadness"] != 6 {
		t.Errorf("distribution = %v", got.EmotionDistribution)
	}
	if got.Importance != 7.0 {
		t.Errorf("importance = %v, want 7.0", got.Importance)
	}

	n, err := db.CountSuperMemories("u1")
	if err != nil {
		t.Fatalf("CountSuperMemories: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSuperMemoriesScopedByUser(t *testing.T) {
	db := testDB(t)

	db.CreateSuperMemory(&SuperMemory{ID: "s1", UserID: "u1", Summary: "mine", Importance: 7})

	list, err := db.RecentSuperMemories("u2", 10)
	if err != nil {
		t.Fatalf("RecentSuperMemories: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("u2 sees %d super memories, want 0", len(list))
	}
}
