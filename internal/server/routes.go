package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, `{"error":"message required"}`, http.StatusBadRequest)
		return
	}

	o := s.registry.Get(userFrom(r))
	reply, err := o.ProcessMessage(r.Context(), req.Message)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstTime bool `json:"first_time"`
	}
	// An empty body means a returning-user greeting.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	o := s.registry.Get(userFrom(r))
	greeting, err := o.Greeting(r.Context(), req.FirstTime)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"greeting":   greeting,
		"first_time": req.FirstTime,
	})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "logout"
	}

	o := s.registry.Get(userFrom(r))
	memoryID, err := o.EndSession(r.Context(), req.Reason)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ended",
		"memory_id": memoryID,
	})
}

func (s *Server) handleListFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := s.registry.Get(userFrom(r)).Memory().AllFacts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type factJSON struct {
		Category string `json:"category"`
		Key      string `json:"key"`
		Value    string `json:"value"`
		Source   string `json:"source,omitempty"`
	}
	out := make([]factJSON, len(facts))
	for i, f := range facts {
		out[i] = factJSON{f.Category, f.Key, f.Value, f.Source}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(out),
		"facts": out,
	})
}

func (s *Server) handlePutFact(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	key := chi.URLParam(r, "key")

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Value == "" {
		http.Error(w, `{"error":"value required"}`, http.StatusBadRequest)
		return
	}

	if err := s.registry.Get(userFrom(r)).Memory().SetFact(category, key, req.Value, "api"); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteFact(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	key := chi.URLParam(r, "key")

	deleted, err := s.registry.Get(userFrom(r)).Memory().DeleteFact(category, key)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, `{"error":"fact not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	ranked, err := s.registry.Get(userFrom(r)).Memory().RecentMicro(limit, 0, true)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type memoryJSON struct {
		ID                string   `json:"id"`
		Summary           string   `json:"summary"`
		Topics            []string `json:"topics,omitempty"`
		PrimaryEmotion    string   `json:"primary_emotion,omitempty"`
		Importance        float64  `json:"importance"`
		CurrentImportance float64  `json:"current_importance"`
		CreatedAt         string   `json:"created_at"`
	}
	out := make([]memoryJSON, len(ranked))
	for i, m := range ranked {
		out[i] = memoryJSON{
			ID:                m.ID,
			Summary:           m.Summary,
			Topics:            m.Topics,
			PrimaryEmotion:    m.PrimaryEmotion,
			Importance:        m.Importance,
			CurrentImportance: m.CurrentImportance,
			CreatedAt:         time.UnixMilli(m.CreatedAt).UTC().Format(time.RFC3339),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(out),
		"memories": out,
	})
}

func (s *Server) handleSuperMemories(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	supers, err := s.db.RecentSuperMemories(userFrom(r), limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type superJSON struct {
		ID               string         `json:"id"`
		Summary          string         `json:"summary"`
		Themes           []string       `json:"themes,omitempty"`
		Topics           []string       `json:"topics,omitempty"`
		DominantEmotion  string         `json:"dominant_emotion,omitempty"`
		AverageIntensity float64        `json:"average_intensity"`
		Distribution     map[string]int `json:"emotion_distribution,omitempty"`
		SourceCount      int            `json:"source_count"`
		RangeStart       string         `json:"range_start"`
		RangeEnd         string         `json:"range_end"`
		Importance       float64        `json:"importance"`
		CreatedAt        string         `json:"created_at"`
	}
	out := make([]superJSON, len(supers))
	for i, sm := range supers {
		out[i] = superJSON{
			ID:               sm.ID,
			Summary:          sm.Summary,
			Themes:           sm.Themes,
			Topics:           sm.Topics,
			DominantEmotion:  sm.DominantEmotion,
			AverageIntensity: sm.AverageIntensity,
			Distribution:     sm.EmotionDistribution,
			SourceCount:      len(sm.SourceMemoryIDs),
			RangeStart:       time.UnixMilli(sm.RangeStart).UTC().Format(time.RFC3339),
			RangeEnd:         time.UnixMilli(sm.RangeEnd).UTC().Format(time.RFC3339),
			Importance:       sm.Importance,
			CreatedAt:        time.UnixMilli(sm.CreatedAt).UTC().Format(time.RFC3339),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(out),
		"memories": out,
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	memCtx, err := s.registry.Get(userFrom(r)).Memory().BuildContext(5, 0.6)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"context": memCtx})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.registry.Get(userFrom(r)).Memory().Stats()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.db.RecentSessions(userFrom(r), 10)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type sessionJSON struct {
		SessionID    string `json:"session_id"`
		Status       string `json:"status"`
		StartedAt    string `json:"started_at"`
		EndedAt      string `json:"ended_at,omitempty"`
		EndReason    string `json:"end_reason,omitempty"`
		MessageCount int    `json:"message_count"`
		MemoryID     string `json:"memory_id,omitempty"`
	}
	out := make([]sessionJSON, len(sessions))
	for i, sess := range sessions {
		sj := sessionJSON{
			SessionID:    sess.SessionID,
			Status:       sess.Status,
			StartedAt:    time.UnixMilli(sess.StartedAt).UTC().Format(time.RFC3339),
			MessageCount: sess.MessageCount,
		}
		if sess.EndedAt != nil {
			sj.EndedAt = time.UnixMilli(*sess.EndedAt).UTC().Format(time.RFC3339)
		}
		if sess.EndReason != nil {
			sj.EndReason = *sess.EndReason
		}
		if sess.MemoryID != nil {
			sj.MemoryID = *sess.MemoryID
		}
		out[i] = sj
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(out),
		"sessions": out,
	})
}
