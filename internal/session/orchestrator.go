// Package session runs the per-user conversation loop: input
// sanitization, emotional and safety analysis, mode selection, prompt
// assembly, and session-end memory capture.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwhitt/kindred/internal/config"
	"github.com/jwhitt/kindred/internal/emotion"
	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/memory"
	"github.com/jwhitt/kindred/internal/safety"
	"github.com/jwhitt/kindred/internal/store"
)

// Orchestrator owns one user's conversation state. All public methods
// are safe for concurrent use; messages from the same user serialize on
// the internal mutex.
type Orchestrator struct {
	mu       sync.Mutex
	userID   string
	db       *store.DB
	client   llm.Client
	memory   *memory.Manager
	tracker  *emotion.Tracker
	assessor *safety.Assessor
	memCfg   config.MemoryConfig

	mode          Mode
	sessionID     string
	history       []store.Message
	lastProactive time.Time
}

// Reply is the full result of processing one user message.
type Reply struct {
	Content   string            `json:"content"`
	SessionID string            `json:"session_id"`
	Mode      Mode              `json:"mode"`
	Emotion   emotion.Snapshot  `json:"-"`
	Safety    safety.Assessment `json:"-"`
	Intent    Intent            `json:"-"`
	Fallback  bool              `json:"fallback,omitempty"`

	// Surfaced for API clients without exposing internals.
	EmotionalState string `json:"emotional_state"`
	RiskLevel      string `json:"risk_level"`
}

func New(db *store.DB, client llm.Client, sum *llm.Summarizer, userID string, memCfg config.MemoryConfig) *Orchestrator {
	return &Orchestrator{
		userID:   userID,
		db:       db,
		client:   client,
		memory:   memory.NewManager(db, userID, sum),
		tracker:  emotion.NewTracker(),
		assessor: safety.NewAssessor(userID),
		memCfg:   memCfg,
		mode:     ModeNormal,
	}
}

func (o *Orchestrator) UserID() string { return o.userID }

// Memory exposes the user's memory manager for the API surface.
func (o *Orchestrator) Memory() *memory.Manager { return o.memory }

// ProcessMessage runs the full pipeline for one user message and
// returns the companion's reply. A provider failure degrades to a
// fallback reply rather than an error; the safety analysis always runs.
func (o *Orchestrator) ProcessMessage(ctx context.Context, raw string) (*Reply, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	clean := Sanitize(raw)
	if clean == "" {
		return nil, fmt.Errorf("message could not be processed")
	}

	// Past validation the chat surface always answers: store trouble
	// degrades to a calm fallback instead of an error.
	if err := o.ensureSession(); err != nil {
		log.Printf("session: start failed for user %s: %v", o.userID, err)
		return &Reply{
			Content:        llm.GeneralFallback(),
			SessionID:      o.sessionID,
			Mode:           o.mode,
			Fallback:       true,
			EmotionalState: "neutral",
			RiskLevel:      "none",
		}, nil
	}
	o.record("user", clean)
	if err := o.db.IncrementMessageCount(o.sessionID); err != nil {
		log.Printf("session: message count update failed for %s: %v", o.sessionID, err)
	}

	snap := emotion.Analyze(clean)
	o.tracker.Record(snap)

	assessment := o.assessor.Assess(clean, snap.Intensity, o.tracker.History())
	intent := ClassifyIntent(clean, snap.Intensity)

	previous := o.mode
	now := time.Now()
	o.mode = selectMode(assessment, snap, intent, len(o.history)/2, o.lastProactive, now)
	if o.mode != previous {
		log.Printf("session: mode change for user %s: %s -> %s", o.userID, previous, o.mode)
	}
	if o.mode == ModeProactive {
		o.lastProactive = now
	}

	var content string
	var fallback bool
	if system, err := o.buildSystemPrompt(snap, assessment, intent, now); err != nil {
		log.Printf("session: context assembly failed for user %s: %v", o.userID, err)
		content, fallback = o.fallbackReply(assessment), true
	} else {
		content, fallback = o.generate(ctx, system, intent, assessment)
	}
	o.record("assistant", content)

	// Harvest facts from what the user just said. Never fatal.
	if n, err := o.memory.ExtractFacts(clean); err != nil {
		log.Printf("session: fact extraction failed for user %s: %v", o.userID, err)
	} else if n > 0 {
		log.Printf("session: extracted %d facts for user %s", n, o.userID)
	}

	return &Reply{
		Content:        content,
		SessionID:      o.sessionID,
		Mode:           o.mode,
		Emotion:        snap,
		Safety:         assessment,
		Intent:         intent,
		Fallback:       fallback,
		EmotionalState: string(snap.State),
		RiskLevel:      assessment.Level.String(),
	}, nil
}

func (o *Orchestrator) ensureSession() error {
	if o.sessionID != "" {
		return nil
	}
	id := uuid.NewString()
	if _, err := o.db.StartSession(id, o.userID); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	o.sessionID = id
	return nil
}

func (o *Orchestrator) record(role, content string) {
	o.history = append(o.history, store.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
}

// interactionSnapshot is the per-message context block handed to the
// model so it can see the pipeline's own read of the moment.
type interactionSnapshot struct {
	EmotionalState     string  `json:"current_emotional_state"`
	PrimaryEmotion     string  `json:"primary_emotion"`
	EmotionalIntensity float64 `json:"emotional_intensity"`
	PrimaryIntent      string  `json:"primary_intent"`
	ResponseStyle      string  `json:"response_style"`
	DepthNeeded        string  `json:"depth_needed"`
	SafetyLevel        string  `json:"safety_level"`
	ConversationMode   string  `json:"conversation_mode"`
}

func (o *Orchestrator) buildSystemPrompt(snap emotion.Snapshot, assessment safety.Assessment,
	intent Intent, now time.Time) (string, error) {

	var b strings.Builder
	b.WriteString(llm.PersonaPrompt(now))

	memCtx, err := o.memory.BuildContext(o.memCfg.MaxContextMemories, o.memCfg.RelevanceThreshold)
	if err != nil {
		return "", err
	}
	b.WriteString("\n\nMEMORY CONTEXT:\n")
	b.WriteString(memCtx)

	if pattern := o.tracker.PatternSummary(); pattern != "" {
		b.WriteString("\n\nEMOTIONAL PATTERN CONTEXT:\n")
		b.WriteString(pattern)
	}

	snapshot, err := json.MarshalIndent(interactionSnapshot{
		EmotionalState:     string(snap.State),
		PrimaryEmotion:     snap.PrimaryEmotion,
		EmotionalIntensity: snap.Intensity,
		PrimaryIntent:      intent.Primary,
		ResponseStyle:      intent.Style,
		DepthNeeded:        intent.Depth,
		SafetyLevel:        assessment.Level.String(),
		ConversationMode:   string(o.mode),
	}, "", "  ")
	if err != nil {
		return "", err
	}
	b.WriteString("\n\nCURRENT INTERACTION CONTEXT:\n")
	b.Write(snapshot)

	if o.mode == ModeProactive {
		b.WriteString("\n\nPROACTIVE CONVERSATION OPPORTUNITIES:\n")
		b.WriteString(o.proactiveSuggestions())
	}

	b.WriteString("\n")
	b.WriteString(llm.StyleGuidelines(intent.Style, intent.Depth, assessment.Level.String()))

	switch o.mode {
	case ModeCrisis:
		name, support := o.supportContacts()
		b.WriteString("\n")
		b.WriteString(llm.CrisisInstructions(name, support,
			assessment.Level.String(), string(assessment.Intervention), assessment.Triggers))
	case ModeFollowUp:
		b.WriteString("\n")
		b.WriteString(llm.FollowupInstructions(assessment.Level.String()))
	}

	return b.String(), nil
}

func (o *Orchestrator) proactiveSuggestions() string {
	suggestion := `You may gently bring up one relevant topic from memory if it feels natural and caring.
Consider:
- Topics they mentioned but didn't fully explore
- Values they shared that might connect to something current
- Past concerns worth a gentle check-in

Only do this if it flows naturally. Never force it.`

	thread, err := o.memory.OpenThread()
	if err != nil || thread == nil {
		return suggestion
	}
	return suggestion + fmt.Sprintf(
		"\n\nOne open thread from a recent conversation (%s): %s", thread.Topic, thread.Summary)
}

func (o *Orchestrator) supportContacts() (name, support string) {
	name, _ = o.memory.GetFact(memory.CategoryIdentity, "name")
	for _, key := range []string{"wife", "husband", "partner", "spouse"} {
		if v, _ := o.memory.GetFact(memory.CategoryRelationships, key); v != "" {
			return name, v
		}
	}
	return name, ""
}

// generate calls the provider and applies the quality gate. It never
// returns an empty reply: provider failure or a reply that fails the
// gate degrades to the mode-appropriate fallback.
func (o *Orchestrator) generate(ctx context.Context, system string, intent Intent,
	assessment safety.Assessment) (string, bool) {

	maxTokens, temperature := 600, 0.7
	if o.mode == ModeCrisis {
		maxTokens, temperature = 400, 0.5
	}

	resp, err := o.client.Complete(ctx, llm.Request{
		System:      system,
		Messages:    o.conversationWindow(intent.Depth),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		log.Printf("session: completion failed for user %s (mode %s): %v", o.userID, o.mode, err)
		return o.fallbackReply(assessment), true
	}

	content := strings.TrimSpace(resp.Content)
	if !o.acceptableReply(content, assessment) {
		log.Printf("session: reply failed quality gate for user %s (mode %s)", o.userID, o.mode)
		return o.fallbackReply(assessment), true
	}
	return content, false
}

// conversationWindow returns the recent transcript sized to the depth
// the intent calls for. The window always ends with the current user
// message.
func (o *Orchestrator) conversationWindow(depth string) []llm.Message {
	exchanges := 3
	switch depth {
	case "deep":
		exchanges = 7
	case "brief":
		exchanges = 2
	}

	window := o.history
	if limit := exchanges*2 + 1; len(window) > limit {
		window = window[len(window)-limit:]
	}
	msgs := make([]llm.Message, 0, len(window))
	for _, m := range window {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// acceptableReply is the quality gate. A crisis-level exchange must
// carry safety language; any reply must be more than a fragment.
func (o *Orchestrator) acceptableReply(content string, assessment safety.Assessment) bool {
	if len(content) < 20 {
		return false
	}
	if assessment.Level >= safety.LevelHigh {
		lower := strings.ToLower(content)
		for _, term := range []string{"support", "help", "crisis", "988", "professional", "safe", "reach out"} {
			if strings.Contains(lower, term) {
				return true
			}
		}
		return false
	}
	return true
}

func (o *Orchestrator) fallbackReply(assessment safety.Assessment) string {
	if o.mode == ModeCrisis {
		name, support := o.supportContacts()
		return llm.CrisisFallback(name, support, assessment.Level.String())
	}
	return llm.GeneralFallback()
}

// Greeting generates a context-aware opening message. firstTime selects
// the introduction variant; returning users get time-of-day awareness
// and their recent emotional pattern.
func (o *Orchestrator) Greeting(ctx context.Context, firstTime bool) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString(llm.PersonaPrompt(now))

	memCtx, err := o.memory.BuildContext(2, 0)
	if err != nil {
		return "", err
	}
	b.WriteString("\n\nMEMORY CONTEXT:\n")
	b.WriteString(memCtx)

	if firstTime {
		b.WriteString(`

FIRST-TIME GREETING:
- Warm, welcoming introduction
- Brief mention of who you are (Wren, an AI companion)
- Set supportive, non-judgmental tone
- Keep it natural and brief (2-3 sentences)
- No questions yet, just welcome`)
	} else {
		fmt.Fprintf(&b, `

RETURNING USER GREETING:
- Time: %s (%s)
- Be personal and contextual
- Reference time of day naturally
- If late night or very early, show gentle concern about rest
- Optionally reference one thing from memory if it feels caring (not forced)
- Keep it warm and conversational (2-3 sentences)`,
			now.Format("15:04 UTC"), timeOfDay(now.Hour()))

		if pattern := o.tracker.PatternSummary(); pattern != "" {
			b.WriteString("\n\nEMOTIONAL PATTERN CONTEXT: " + pattern)
		}
		if thread, err := o.memory.OpenThread(); err == nil && thread != nil {
			b.WriteString("\n\nPOSSIBLE GENTLE FOLLOW-UP: consider gently checking in about " + thread.Topic)
		}
	}

	b.WriteString("\n\nGenerate a warm, genuine greeting now.")

	resp, err := o.client.Complete(ctx, llm.Request{
		System:      b.String(),
		Messages:    []llm.Message{{Role: "user", Content: "[Generate greeting]"}},
		MaxTokens:   180,
		Temperature: 0.8,
	})
	if err != nil {
		log.Printf("session: greeting generation failed for user %s: %v", o.userID, err)
		if firstTime {
			return "Hello! I'm Wren, an AI companion. I'm here to listen and support you.", nil
		}
		return "Welcome back. What's on your mind today?", nil
	}
	return strings.TrimSpace(resp.Content), nil
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "late night"
	}
}

// EndSession turns the conversation so far into a micro memory, closes
// the session record, and resets per-session state. The rolling
// emotional history survives; the transcript does not. Returns the ID
// of the recorded memory, or "" for sessions too short to keep.
func (o *Orchestrator) EndSession(ctx context.Context, reason string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionID == "" {
		return "", nil
	}

	memoryID, err := o.memory.EndSession(ctx, o.history, reason)
	if err != nil {
		return "", err
	}
	if err := o.db.EndSession(o.sessionID, reason, memoryID); err != nil {
		log.Printf("session: closing session record %s failed: %v", o.sessionID, err)
	}

	o.sessionID = ""
	o.history = nil
	o.mode = ModeNormal
	o.tracker.ResetSession()

	return memoryID, nil
}

// Active reports whether a session is open.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID != ""
}
