package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Summarizer wraps a Client for short internal completions: session
// summaries and memory consolidation. Calls are bounded by their own
// timeout so a slow provider never stalls session teardown.
type Summarizer struct {
	Client  Client
	Timeout time.Duration
}

func NewSummarizer(client Client, timeout time.Duration) *Summarizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Summarizer{Client: client, Timeout: timeout}
}

// Summarize runs one system+user completion and returns the text.
func (s *Summarizer) Summarize(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resp, err := s.Client.Complete(ctx, Request{
		System:      system,
		Messages:    []Message{{Role: "user", Content: user}},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("summarize: empty completion")
	}
	return text, nil
}

// SessionSummary summarizes a conversation transcript. On any provider
// failure it falls back to a deterministic placeholder so the session
// can still be recorded.
func (s *Summarizer) SessionSummary(ctx context.Context, transcript string, messageCount int) string {
	text, err := s.Summarize(ctx,
		"Summarize this conversation in 2-3 sentences. "+
			"Focus on: main topics discussed, user's emotional state, "+
			"and any key information shared.",
		"Summarize this conversation:\n\n"+transcript)
	if err != nil {
		return fmt.Sprintf("Conversation with %d messages", messageCount)
	}
	return text
}

// Consolidate distills a batch of session summaries into one
// consolidation text. Unlike SessionSummary there is no fallback: the
// caller must not consume source memories without a real summary.
func (s *Summarizer) Consolidate(ctx context.Context, prompt string) (string, error) {
	return s.Summarize(ctx,
		"You are a memory consolidation system. Analyze conversation summaries "+
			"and extract:\n"+
			"1. Recurring themes and patterns\n"+
			"2. Significant life events or changes\n"+
			"3. Emotional patterns and growth\n"+
			"4. Key facts and preferences\n"+
			"5. Notable topics of interest\n\n"+
			"Provide a concise but comprehensive consolidation.",
		prompt)
}
