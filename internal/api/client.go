// Package api is the REST client for the playground backend's
// session-control plane: create/stop sessions, chat, and history.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crewdeck/crewdeck/internal/debug"
	"github.com/crewdeck/crewdeck/internal/team"
)

// DefaultSystemPrompt is substituted for agents submitted without one.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// Client talks to one playground backend. Control-plane calls are
// independent of the event stream: their failures are reported to the
// caller and logged, never retried automatically.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient returns a client for the backend at baseURL. token may be empty
// for unauthenticated backends.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// RosterAgent is the outbound roster entry submitted on session creation.
type RosterAgent struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Connections  []string `json:"connections"`
}

// CreateSessionRequest is the POST /api/sessions body.
type CreateSessionRequest struct {
	Agents      []RosterAgent     `json:"agents"`
	Connections [][]string        `json:"connections"`
	APIKeys     map[string]string `json:"api_keys"`
}

// CreateSessionResponse is the backend's acknowledgement. The session is
// created and started in one call.
type CreateSessionResponse struct {
	SessionID string   `json:"session_id"`
	Agents    []string `json:"agents"`
	Status    string   `json:"status"`
}

// SessionSummary is one entry of GET /api/history.
type SessionSummary struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	CreatedAt string         `json:"created_at,omitempty"`
	Config    *SessionConfig `json:"config,omitempty"`
}

// SessionConfig echoes the roster a session was created with.
type SessionConfig struct {
	Agents []RosterAgent `json:"agents"`
}

// HistoryMessage is one stored conversation entry of GET /api/history/{id}.
type HistoryMessage struct {
	ID        protocolID `json:"id"`
	SessionID string     `json:"session_id"`
	FromAgent string     `json:"from_agent"`
	Text      string     `json:"text"`
	Timestamp string     `json:"timestamp"`
}

// protocolID tolerates numeric ids in stored history.
type protocolID string

func (p *protocolID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = protocolID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*p = protocolID(n.String())
		return nil
	}
	*p = ""
	return nil
}

func (p protocolID) String() string { return string(p) }

// SessionHistory is the GET /api/history/{id} body.
type SessionHistory struct {
	SessionID string           `json:"session_id"`
	Status    string           `json:"status"`
	Messages  []HistoryMessage `json:"messages"`
}

// ToMessage converts a stored history entry to the store's message type.
func (m HistoryMessage) ToMessage(sessionID string) team.Message {
	role := team.MessageRoleAgent
	agentName := m.FromAgent
	if m.FromAgent == "user" {
		role = team.MessageRoleUser
		agentName = ""
	}
	if m.SessionID != "" {
		sessionID = m.SessionID
	}
	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		ts = time.Time{}
	}
	return team.Message{
		ID:        m.ID.String(),
		SessionID: sessionID,
		Role:      role,
		AgentName: agentName,
		Content:   m.Text,
		Timestamp: ts,
	}
}

// CreateSession submits the roster and credentials and starts a session.
// Blank system prompts are defaulted before submission.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	for i := range req.Agents {
		if strings.TrimSpace(req.Agents[i].SystemPrompt) == "" {
			req.Agents[i].SystemPrompt = DefaultSystemPrompt
		}
		if req.Agents[i].Role == "" {
			req.Agents[i].Role = string(team.RoleTeammate)
		}
		if req.Agents[i].Connections == nil {
			req.Agents[i].Connections = []string{}
		}
	}
	if req.Connections == nil {
		req.Connections = [][]string{}
	}
	if req.APIKeys == nil {
		req.APIKeys = map[string]string{}
	}

	var resp CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &resp, nil
}

// RosterFromAgents converts store agents to the outbound roster shape.
func RosterFromAgents(agents []team.Agent) []RosterAgent {
	out := make([]RosterAgent, 0, len(agents))
	for _, a := range agents {
		out = append(out, RosterAgent{
			Name:         a.Name,
			Role:         string(a.Role),
			Provider:     a.Provider,
			Model:        a.Model,
			SystemPrompt: a.SystemPrompt,
			Connections:  a.Connections,
		})
	}
	return out
}

// StopSession stops and cleans up a running session.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil); err != nil {
		return fmt.Errorf("stopping session %s: %w", sessionID, err)
	}
	return nil
}

// SendMessage delivers a user chat message into a running session.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) error {
	body := map[string]string{"message": message}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/chat", body, nil); err != nil {
		return fmt.Errorf("sending message to session %s: %w", sessionID, err)
	}
	return nil
}

// History lists stored sessions, newest first.
func (c *Client) History(ctx context.Context) ([]SessionSummary, error) {
	var resp struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return resp.Sessions, nil
}

// SessionHistory fetches the stored conversation of one session.
func (c *Client) SessionHistory(ctx context.Context, sessionID string) (*SessionHistory, error) {
	var resp SessionHistory
	if err := c.do(ctx, http.MethodGet, "/api/history/"+sessionID, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching history %s: %w", sessionID, err)
	}
	if resp.SessionID == "" {
		resp.SessionID = sessionID
	}
	return &resp, nil
}

// DeleteHistory removes a stored session.
func (c *Client) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/history/"+sessionID, nil, nil); err != nil {
		return fmt.Errorf("deleting history %s: %w", sessionID, err)
	}
	return nil
}

// Health pings the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// CheckSession reports whether a session is still live on the backend.
// Any transport or status failure reads as "not alive".
func (c *Client) CheckSession(ctx context.Context, sessionID string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.StreamURL(sessionID), nil)
	if err != nil {
		return false
	}
	c.setAuth(req)
	resp, err := c.hc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// StreamURL returns the event-stream endpoint for a session id.
func (c *Client) StreamURL(sessionID string) string {
	return c.baseURL + "/api/sessions/" + sessionID + "/stream"
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do performs one JSON request/response cycle. Non-2xx responses become
// errors carrying the status and body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		debug.LogKV("api", "request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		debug.LogKV("api", "request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
