package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSummarizeUsesClient(t *testing.T) {
	mock := &MockClient{Response: &Response{Content: "  a short summary  ", Provider: "mock"}}
	s := NewSummarizer(mock, time.Second)

	got, err := s.Summarize(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "a short summary" {
		t.Errorf("got %q, want trimmed summary", got)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(mock.Calls))
	}
	if mock.Calls[0].System != "system text" {
		t.Errorf("system = %q", mock.Calls[0].System)
	}
}

func TestSummarizeEmptyCompletion(t *testing.T) {
	mock := &MockClient{Response: &Response{Content: "   "}}
	s := NewSummarizer(mock, time.Second)

	if _, err := s.Summarize(context.Background(), "sys", "user"); err == nil {
		t.Error("expected error for empty completion")
	}
}

func TestSummarizeTimeout(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "too late"},
		Delay: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	s := NewSummarizer(mock, 10*time.Millisecond)

	if _, err := s.Summarize(context.Background(), "sys", "user"); err == nil {
		t.Error("expected timeout error")
	}
}

func TestSessionSummaryFallback(t *testing.T) {
	mock := &MockClient{Err: errors.New("provider down")}
	s := NewSummarizer(mock, time.Second)

	got := s.SessionSummary(context.Background(), "user: hello\nassistant: hi", 7)
	if got != "Conversation with 7 messages" {
		t.Errorf("fallback = %q", got)
	}
}

func TestSessionSummarySuccess(t *testing.T) {
	mock := &MockClient{Response: &Response{Content: "They discussed the garden."}}
	s := NewSummarizer(mock, time.Second)

	got := s.SessionSummary(context.Background(), "user: the roses bloomed", 2)
	if got != "They discussed the garden." {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(mock.Calls[0].Messages[0].Content, "the roses bloomed") {
		t.Error("transcript not passed through")
	}
}

func TestConsolidatePropagatesError(t *testing.T) {
	mock := &MockClient{Err: errors.New("provider down")}
	s := NewSummarizer(mock, time.Second)

	if _, err := s.Consolidate(context.Background(), "batch"); err == nil {
		t.Error("consolidation must fail loudly, not fall back")
	}
}
