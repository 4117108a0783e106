package store

import (
	"fmt"
	"testing"
	"time"
)

func testMicro(id, userID string, createdAt int64) *MicroMemory {
	return &MicroMemory{
		ID:     id,
		UserID: userID,
		Summary: "a conversation about the garden",
		Messages: []Message{
			{Role: "user", Content: "the roses are blooming"},
			{Role: "assistant", Content: "that sounds lovely"},
		},
		PrimaryEmotion: "joy",
		Intensity:      0.6,
		Topics:         []string{"hobbies"},
		Importance:     5.0,
		CreatedAt:      createdAt,
	}
}

func TestCreateAndGetMicroMemory(t *testing.T) {
	db := testDB(t)

	m := testMicro("m1", "u1", 0)
	if err := db.CreateMicroMemory(m); err != nil {
		t.Fatalf("CreateMicroMemory: %v", err)
	}
	if m.CreatedAt == 0 {
		t.Error("CreatedAt not assigned")
	}

	got, err := db.GetMicroMemory("u1", "m1")
	if err != nil {
		t.Fatalf("GetMicroMemory: %v", err)
	}
	if got == nil {
		t.Fatal("GetMicroMemory = nil")
	}
	if got.Summary != m.Summary {
		t.Errorf("summary = %q, want %q", got.Summary, m.Summary)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "the roses are blooming" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.AccessCount != 1 {
		t.Errorf("access count = %d, want 1 after read", got.AccessCount)
	}
	if got.Consolidated {
		t.Error("new memory marked consolidated")
	}
}

func TestGetMicroMemoryWrongUser(t *testing.T) {
	db := testDB(t)

	db.CreateMicroMemory(testMicro("m1", "u1", 0))

	got, err := db.GetMicroMemory("u2", "m1")
	if err != nil {
		t.Fatalf("GetMicroMemory: %v", err)
	}
	if got != nil {
		t.Error("memory visible to another user")
	}
}

func TestUnconsolidatedFlow(t *testing.T) {
	db := testDB(t)
	base := time.Now().UnixMilli()

	for i := 0; i < 5; i++ {
		m := testMicro(string(rune('a'+i)), "u1", base+int64(i))
		if err := db.CreateMicroMemory(m); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	n, err := db.UnconsolidatedCount("u1")
	if err != nil {
		t.Fatalf("UnconsolidatedCount: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}

	if err := db.MarkConsolidated("u1", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("MarkConsolidated: %v", err)
	}

	n, _ = db.UnconsolidatedCount("u1")
	if n != 2 {
		t.Errorf("count after consolidation = %d, want 2", n)
	}

	remaining, err := db.UnconsolidatedMicroMemories("u1", 0)
	if err != nil {
		t.Fatalf("UnconsolidatedMicroMemories: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	// Newest first.
	if remaining[0].ID != "e" || remaining[1].ID != "d" {
		t.Errorf("order = %s, %s; want e, d", remaining[0].ID, remaining[1].ID)
	}
}

func TestBoostImportanceCapped(t *testing.T) {
	db := testDB(t)

	m := testMicro("m1", "u1", 0)
	m.Importance = 9.5
	db.CreateMicroMemory(m)

	if err := db.BoostImportance("u1", "m1", 2.0); err != nil {
		t.Fatalf("BoostImportance: %v", err)
	}

	got, _ := db.GetMicroMemory("u1", "m1")
	if got.Importance != 10.0 {
		t.Errorf("importance = %v, want capped at 10", got.Importance)
	}
}

func TestDeleteMicroMemories(t *testing.T) {
	db := testDB(t)

	db.CreateMicroMemory(testMicro("m1", "u1", 0))
	db.CreateMicroMemory(testMicro("m2", "u1", 0))
	db.CreateMicroMemory(testMicro("m3", "u2", 0))

	n, err := db.DeleteMicroMemories("u1", []string{"m1", "m2", "m3"})
	if err != nil {
		t.Fatalf("DeleteMicroMemories: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2 (m3 belongs to another user)", n)
	}
}

func TestConsolidatedBefore(t *testing.T) {
	db := testDB(t)
	base := time.Now().UnixMilli()

	old := testMicro("old", "u1", base-1000)
	recent := testMicro("recent", "u1", base+1000)
	db.CreateMicroMemory(old)
	db.CreateMicroMemory(recent)
	db.MarkConsolidated("u1", []string{"old", "recent"})

	got, err := db.ConsolidatedBefore("u1", base)
	if err != nil {
		t.Fatalf("ConsolidatedBefore: %v", err)
	}
	if len(got) != 1 || got[0].ID != "old" {
		t.Errorf("got %+v, want only the old memory", got)
	}
}

func TestCreateMicroMemoryCapsTranscript(t *testing.T) {
	db := testDB(t)

	m := testMicro("m1", "u1", 0)
	m.Messages = nil
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		m.Messages = append(m.Messages, Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	if err := db.CreateMicroMemory(m); err != nil {
		t.Fatalf("CreateMicroMemory: %v", err)
	}

	got, err := db.GetMicroMemory("u1", "m1")
	if err != nil {
		t.Fatalf("GetMicroMemory: %v", err)
	}
	if len(got.Messages) != 10 {
		t.Fatalf("stored messages = %d, want 10", len(got.Messages))
	}
	// The most recent turns survive the cap.
	if got.Messages[0].Content != "turn 5" || got.Messages[9].Content != "turn 14" {
		t.Errorf("kept window = %q .. %q, want turn 5 .. turn 14",
			got.Messages[0].Content, got.Messages[9].Content)
	}
}
