package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crewdeck/crewdeck/internal/team"
)

func TestCreateSessionDefaultsPrompts(t *testing.T) {
	var got CreateSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		json.NewEncoder(w).Encode(CreateSessionResponse{SessionID: "sess-1", Status: "running"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1")
	resp, err := c.CreateSession(context.Background(), CreateSessionRequest{
		Agents: []RosterAgent{
			{Name: "Planner", Role: "leader", Provider: "anthropic", Model: "m"},
			{Name: "Coder", Provider: "openai", Model: "m", SystemPrompt: "You write Go."},
		},
		APIKeys: map[string]string{"anthropic": "sk-1"},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if resp.SessionID != "sess-1" {
		t.Fatalf("session id = %q", resp.SessionID)
	}

	if got.Agents[0].SystemPrompt != DefaultSystemPrompt {
		t.Fatalf("blank prompt not defaulted: %q", got.Agents[0].SystemPrompt)
	}
	if got.Agents[1].SystemPrompt != "You write Go." {
		t.Fatalf("explicit prompt overwritten: %q", got.Agents[1].SystemPrompt)
	}
	if got.Agents[1].Role != "teammate" {
		t.Fatalf("blank role not defaulted: %q", got.Agents[1].Role)
	}
	if got.Connections == nil {
		t.Fatal("connections should serialize as an empty list, not null")
	}
}

func TestErrorsCarryStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.StopSession(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "stopping session ghost: api error 404: no such session"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/history":
			w.Write([]byte(`{"sessions":[{"id":"s1","status":"completed"},{"id":"s2","status":"running"}]}`))
		case "/api/history/s1":
			w.Write([]byte(`{"status":"completed","messages":[
				{"id":1,"from_agent":"user","text":"hello","timestamp":"2026-08-30T12:00:00Z"},
				{"id":"m2","from_agent":"Planner","text":"hi","timestamp":"bad"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	sessions, err := c.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s1" {
		t.Fatalf("sessions = %+v", sessions)
	}

	hist, err := c.SessionHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("SessionHistory: %v", err)
	}
	if hist.SessionID != "s1" {
		t.Fatalf("session id not backfilled: %q", hist.SessionID)
	}
	if len(hist.Messages) != 2 {
		t.Fatalf("message count = %d", len(hist.Messages))
	}

	first := hist.Messages[0].ToMessage("s1")
	if first.Role != team.MessageRoleUser || first.AgentName != "" || first.ID != "1" {
		t.Fatalf("user message mapping: %+v", first)
	}
	second := hist.Messages[1].ToMessage("s1")
	if second.Role != team.MessageRoleAgent || second.AgentName != "Planner" {
		t.Fatalf("agent message mapping: %+v", second)
	}
	if !second.Timestamp.IsZero() {
		t.Fatalf("unparseable timestamp should map to zero, got %v", second.Timestamp)
	}
}

func TestCheckSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if r.URL.Path == "/api/sessions/alive/stream" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if !c.CheckSession(context.Background(), "alive") {
		t.Fatal("live session should report true")
	}
	if c.CheckSession(context.Background(), "gone") {
		t.Fatal("missing session should report false")
	}

	c2 := NewClient("http://127.0.0.1:0", "")
	if c2.CheckSession(context.Background(), "x") {
		t.Fatal("transport failure should report false")
	}
}

func TestStreamURL(t *testing.T) {
	c := NewClient("http://localhost:8080/", "")
	want := "http://localhost:8080/api/sessions/s1/stream"
	if got := c.StreamURL("s1"); got != want {
		t.Fatalf("StreamURL = %q, want %q", got, want)
	}
}

func TestRosterFromAgents(t *testing.T) {
	roster := RosterFromAgents([]team.Agent{
		{Name: "Planner", Role: team.RoleLeader, Provider: "anthropic", Model: "m", SystemPrompt: "plan", Connections: []string{"c1"}},
	})
	if len(roster) != 1 {
		t.Fatalf("roster size = %d", len(roster))
	}
	r := roster[0]
	if r.Name != "Planner" || r.Role != "leader" || r.SystemPrompt != "plan" || len(r.Connections) != 1 {
		t.Fatalf("roster entry = %+v", r)
	}
}
