package playground

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/crewdeck/crewdeck/internal/buildinfo"
	"github.com/crewdeck/crewdeck/internal/debug"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		debug.LogKV("playground", "failed to encode json response", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type createSessionRequest struct {
	Agents      []AgentSpec       `json:"agents"`
	Connections [][]string        `json:"connections"`
	APIKeys     map[string]string `json:"api_keys"`
}

type createSessionResponse struct {
	SessionID string   `json:"session_id"`
	Agents    []string `json:"agents"`
	Status    string   `json:"status"`
}

func (srv *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Agents) == 0 {
		writeError(w, http.StatusBadRequest, "at least one agent required")
		return
	}
	for _, a := range req.Agents {
		if strings.TrimSpace(a.Name) == "" {
			writeError(w, http.StatusBadRequest, "agent name required")
			return
		}
	}

	s := srv.registry.Create(req.Agents)

	names := make([]string, 0, len(req.Agents))
	for _, a := range req.Agents {
		names = append(names, a.Name)
	}
	writeJSON(w, http.StatusOK, createSessionResponse{
		SessionID: s.ID,
		Agents:    names,
		Status:    s.Status(),
	})
}

func (srv *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         s.ID,
		"status":     s.Status(),
		"created_at": s.CreatedAt,
	})
}

func (srv *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": s.Status()})
}

func (srv *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}
	if !s.Chat(req.Message) {
		writeError(w, http.StatusConflict, "session is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type sessionSummary struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	CreatedAt string         `json:"created_at"`
	Config    *sessionConfig `json:"config,omitempty"`
}

type sessionConfig struct {
	Agents []AgentSpec `json:"agents"`
}

func (srv *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessions := srv.registry.List()
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{
			ID:        s.ID,
			Status:    s.Status(),
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
			Config:    &sessionConfig{Agents: s.Agents},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (srv *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.ID,
		"status":     s.Status(),
		"messages":   s.Messages(),
	})
}

func (srv *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !srv.registry.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Current().Version,
	})
}
