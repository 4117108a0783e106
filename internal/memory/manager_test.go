package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/store"
)

func testManager(t *testing.T, mock *llm.MockClient) *Manager {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewManager(db, "u1", llm.NewSummarizer(mock, time.Second))
}

func seedMicro(t *testing.T, m *Manager, id string, importance float64, createdAt int64) {
	t.Helper()
	mem := &store.MicroMemory{
		ID:         id,
		UserID:     m.userID,
		Summary:    "summary " + id,
		Importance: importance,
		CreatedAt:  createdAt,
	}
	if err := m.db.CreateMicroMemory(mem); err != nil {
		t.Fatalf("seed micro %s: %v", id, err)
	}
}

func TestEndSessionTooShort(t *testing.T) {
	m := testManager(t, &llm.MockClient{Response: &llm.Response{Content: "summary"}})

	id, err := m.EndSession(context.Background(), []store.Message{
		{Role: "user", Content: "hello"},
	}, "user_goodbye")
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if id != "" {
		t.Errorf("short session produced memory %q", id)
	}
	count, err := m.db.CountMicroMemories(m.userID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("micro memory count = %d, want 0", count)
	}
}

func TestEndSessionRecordsMemory(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "User talked about their dog and work stress."}}
	m := testManager(t, mock)

	messages := []store.Message{
		{Role: "user", Content: "I have a dog named Biscuit and work is stressful"},
		{Role: "assistant", Content: "That sounds like a lot to carry."},
		{Role: "user", Content: "I feel sad about my job"},
	}
	id, err := m.EndSession(context.Background(), messages, "user_goodbye")
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if id == "" {
		t.Fatal("expected a memory ID")
	}

	mem, err := m.db.GetMicroMemory(m.userID, id)
	if err != nil {
		t.Fatal(err)
	}
	if mem == nil {
		t.Fatal("memory not stored")
	}
	if mem.Summary != "User talked about their dog and work stress." {
		t.Errorf("summary = %q", mem.Summary)
	}
	wantTopics := []string{"work", "emotions", "pets"}
	if len(mem.Topics) != len(wantTopics) {
		t.Fatalf("topics = %v, want %v", mem.Topics, wantTopics)
	}
	for i, topic := range wantTopics {
		if mem.Topics[i] != topic {
			t.Errorf("topics[%d] = %q, want %q", i, mem.Topics[i], topic)
		}
	}
	if mem.PrimaryEmotion != "negative" {
		t.Errorf("primary emotion = %q, want negative", mem.PrimaryEmotion)
	}
	// base 5 + 2 (intensity) + 1.5 (three topics, capped)
	if mem.Importance != 8.5 {
		t.Errorf("importance = %v, want 8.5", mem.Importance)
	}

	// Fact extraction runs as part of teardown.
	pet, err := m.GetFact(CategoryRelationships, "pet_dog_biscuit")
	if err != nil {
		t.Fatal(err)
	}
	if pet != "dog named Biscuit" {
		t.Errorf("pet fact = %q", pet)
	}
}

func TestEndSessionSummaryFallback(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("provider down")}
	m := testManager(t, mock)

	id, err := m.EndSession(context.Background(), []store.Message{
		{Role: "user", Content: "hi there"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "bye"},
	}, "timeout")
	if err != nil {
		t.Fatalf("end session: %v", err)
	}

	mem, err := m.db.GetMicroMemory(m.userID, id)
	if err != nil {
		t.Fatal(err)
	}
	if mem.Summary != "Conversation with 3 messages" {
		t.Errorf("fallback summary = %q", mem.Summary)
	}
}

func TestRecentMicroDecayFiltering(t *testing.T) {
	m := testManager(t, &llm.MockClient{})
	now := time.Now()

	seedMicro(t, m, "fresh", 5.0, now.UnixMilli())
	seedMicro(t, m, "stale", 5.0, now.AddDate(0, 0, -60).UnixMilli())

	// Raw importance: both pass the filter.
	raw, err := m.RecentMicro(10, 2.0, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 2 {
		t.Fatalf("raw count = %d, want 2", len(raw))
	}

	// With decay the 60-day-old memory falls below the threshold.
	decayed, err := m.RecentMicro(10, 2.0, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(decayed) != 1 {
		t.Fatalf("decayed count = %d, want 1", len(decayed))
	}
	if decayed[0].ID != "fresh" {
		t.Errorf("kept memory = %s, want fresh", decayed[0].ID)
	}
	if decayed[0].Importance != 5.0 {
		t.Errorf("stored importance mutated: %v", decayed[0].Importance)
	}
}

func TestRecentMicroSortedByCurrentImportance(t *testing.T) {
	m := testManager(t, &llm.MockClient{})
	now := time.Now().UnixMilli()

	seedMicro(t, m, "low", 3.0, now)
	seedMicro(t, m, "high", 9.0, now)
	seedMicro(t, m, "mid", 6.0, now)

	ranked, err := m.RecentMicro(10, 2.0, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].ID, id)
		}
	}
}

func TestCleanup(t *testing.T) {
	m := testManager(t, &llm.MockClient{})
	now := time.Now()
	old := now.AddDate(0, 0, -90).UnixMilli()

	// Old and consolidated: decays far below the deletion floor.
	seedMicro(t, m, "forgettable", 4.0, old)
	// Old and consolidated but important enough to survive decay a
	// while longer.
	seedMicro(t, m, "durable", 10.0, now.AddDate(0, 0, -31).UnixMilli())
	// Old but never consolidated: cleanup must not touch it.
	seedMicro(t, m, "unconsolidated", 4.0, old)

	if err := m.db.MarkConsolidated(m.userID, []string{"forgettable", "durable"}); err != nil {
		t.Fatal(err)
	}

	deleted, err := m.Cleanup(30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	for _, id := range []string{"durable", "unconsolidated"} {
		mem, err := m.db.GetMicroMemory(m.userID, id)
		if err != nil {
			t.Fatal(err)
		}
		if mem == nil {
			t.Errorf("%s was deleted", id)
		}
	}
	gone, err := m.db.GetMicroMemory(m.userID, "forgettable")
	if err != nil {
		t.Fatal(err)
	}
	if gone != nil {
		t.Error("forgettable survived cleanup")
	}
}

func TestBuildContext(t *testing.T) {
	m := testManager(t, &llm.MockClient{})
	now := time.Now()

	if err := m.SetFact(CategoryIdentity, "name", "Margaret", "conversation"); err != nil {
		t.Fatal(err)
	}
	if err := m.db.CreateMicroMemory(&store.MicroMemory{
		ID:             ulid.Make().String(),
		UserID:         m.userID,
		Summary:        "Discussed the garden and the new greenhouse",
		PrimaryEmotion: "positive",
		Intensity:      0.6,
		Importance:     8.0,
		CreatedAt:      now.UnixMilli(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := m.db.CreateSuperMemory(&store.SuperMemory{
		ID:              ulid.Make().String(),
		UserID:          m.userID,
		Summary:         "A season of gardening and growing confidence",
		Themes:          []string{"personal_growth"},
		DominantEmotion: "positive",
		Importance:      7.0,
		RangeStart:      now.AddDate(0, -2, 0).UnixMilli(),
		RangeEnd:        now.UnixMilli(),
	}); err != nil {
		t.Fatal(err)
	}

	ctx, err := m.BuildContext(5, 0.6)
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	for _, want := range []string{
		"=== PERSISTENT FACTS (Never Forget) ===",
		"name: Margaret",
		"=== RECENT CONVERSATIONS ===",
		"Discussed the garden and the new greenhouse",
		"Emotion: positive (intensity: 0.6)",
		"=== LONG-TERM PATTERNS ===",
		"A season of gardening and growing confidence",
		"Themes: personal_growth",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q\n%s", want, ctx)
		}
	}
}

func TestBuildContextEmpty(t *testing.T) {
	m := testManager(t, &llm.MockClient{})

	ctx, err := m.BuildContext(5, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx, "No persistent facts stored yet.") {
		t.Errorf("empty context = %q", ctx)
	}
	if strings.Contains(ctx, "RECENT CONVERSATIONS") || strings.Contains(ctx, "LONG-TERM PATTERNS") {
		t.Error("empty tiers still rendered headers")
	}
}

func TestOpenThread(t *testing.T) {
	m := testManager(t, &llm.MockClient{})
	now := time.Now().UnixMilli()

	thread, err := m.OpenThread()
	if err != nil {
		t.Fatal(err)
	}
	if thread != nil {
		t.Fatalf("empty store produced thread %+v", thread)
	}

	if err := m.db.CreateMicroMemory(&store.MicroMemory{
		ID:         "worry",
		UserID:     m.userID,
		Summary:    "Worried about the hospital appointment on Friday",
		Topics:     []string{"health"},
		Importance: 9.0,
		CreatedAt:  now,
	}); err != nil {
		t.Fatal(err)
	}

	thread, err = m.OpenThread()
	if err != nil {
		t.Fatal(err)
	}
	if thread == nil {
		t.Fatal("expected an open thread")
	}
	if thread.Topic != "health" {
		t.Errorf("topic = %q, want health", thread.Topic)
	}
	if !strings.Contains(thread.Summary, "hospital") {
		t.Errorf("summary = %q", thread.Summary)
	}
}

func TestStats(t *testing.T) {
	m := testManager(t, &llm.MockClient{})
	now := time.Now().UnixMilli()

	if err := m.SetFact(CategoryIdentity, "name", "Dave", "conversation"); err != nil {
		t.Fatal(err)
	}
	seedMicro(t, m, "a", 5.0, now)
	seedMicro(t, m, "b", 5.0, now)
	if err := m.db.MarkConsolidated(m.userID, []string{"a"}); err != nil {
		t.Fatal(err)
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Facts != 1 || stats.MicroMemories != 2 || stats.Unconsolidated != 1 || stats.SuperMemories != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEndSessionCapsStoredTranscript(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "A long catch-up about the week."}}
	m := testManager(t, mock)

	var messages []store.Message
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		messages = append(messages, store.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	id, err := m.EndSession(context.Background(), messages, "user_goodbye")
	if err != nil {
		t.Fatalf("end session: %v", err)
	}

	mem, err := m.db.GetMicroMemory("u1", id)
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if len(mem.Messages) != 10 {
		t.Fatalf("stored messages = %d, want 10", len(mem.Messages))
	}
	if mem.Messages[0].Content != "turn 5" {
		t.Errorf("oldest kept turn = %q, want turn 5", mem.Messages[0].Content)
	}
}
