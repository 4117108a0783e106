package session

import (
	"context"
	"log"
	"sync"

	"github.com/jwhitt/kindred/internal/config"
	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/store"
)

// Registry hands out one Orchestrator per user and keeps it alive
// across requests so conversation state survives between HTTP calls.
type Registry struct {
	mu     sync.Mutex
	db     *store.DB
	client llm.Client
	sum    *llm.Summarizer
	memCfg config.MemoryConfig
	active map[string]*Orchestrator
}

func NewRegistry(db *store.DB, client llm.Client, sum *llm.Summarizer, memCfg config.MemoryConfig) *Registry {
	return &Registry{
		db:     db,
		client: client,
		sum:    sum,
		memCfg: memCfg,
		active: make(map[string]*Orchestrator),
	}
}

// Get returns the user's orchestrator, creating it on first use.
func (r *Registry) Get(userID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.active[userID]; ok {
		return o
	}
	o := New(r.db, r.client, r.sum, userID, r.memCfg)
	r.active[userID] = o
	return o
}

// Evict ends the user's session if one is open and drops the
// orchestrator.
func (r *Registry) Evict(ctx context.Context, userID string, reason string) {
	r.mu.Lock()
	o, ok := r.active[userID]
	delete(r.active, userID)
	r.mu.Unlock()

	if ok {
		if _, err := o.EndSession(ctx, reason); err != nil {
			log.Printf("registry: ending session for user %s failed: %v", userID, err)
		}
	}
}

// DrainAll ends every open session. Called on shutdown so in-flight
// conversations become memories instead of vanishing.
func (r *Registry) DrainAll(ctx context.Context) {
	r.mu.Lock()
	drained := make([]*Orchestrator, 0, len(r.active))
	for _, o := range r.active {
		drained = append(drained, o)
	}
	r.active = make(map[string]*Orchestrator)
	r.mu.Unlock()

	for _, o := range drained {
		if _, err := o.EndSession(ctx, "shutdown"); err != nil {
			log.Printf("registry: draining session for user %s failed: %v", o.UserID(), err)
		}
	}
}

// Size reports the number of live orchestrators.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
