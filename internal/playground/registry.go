package playground

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/crewdeck/crewdeck/internal/hexid"
	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/pkg/protocol"
)

// AgentSpec is one roster entry submitted on session creation.
type AgentSpec struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Connections  []string `json:"connections"`
}

// StoredMessage is one persisted conversation entry.
type StoredMessage struct {
	ID        int    `json:"id"`
	SessionID string `json:"session_id"`
	FromAgent string `json:"from_agent"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Session is one playground session: its roster, its stored conversation,
// and the fan-out to live stream subscribers.
type Session struct {
	ID        string
	CreatedAt time.Time
	Agents    []AgentSpec

	mu       sync.Mutex
	status   string
	messages []StoredMessage
	nextMsg  int
	subs     map[chan []byte]struct{}
	inbox    chan string
	cancel   context.CancelFunc
	done     chan struct{}
}

// Status returns the session lifecycle status.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Live reports whether the session still accepts chat and emits events.
func (s *Session) Live() bool {
	return s.Status() == team.SessionRunning
}

// Messages returns a copy of the stored conversation.
func (s *Session) Messages() []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StoredMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Subscribe attaches a live stream consumer. The returned channel receives
// encoded event frames; cancel detaches it. Slow consumers lose frames
// rather than stalling the feed.
func (s *Session) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 256)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// publish encodes one event and fans it out to all live subscribers.
func (s *Session) publish(ev protocol.Event) {
	ev.SessionID = s.ID
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	raw, err := protocol.Encode(ev)
	if err != nil {
		return
	}
	s.mu.Lock()
	for ch := range s.subs {
		select {
		case ch <- raw:
		default:
		}
	}
	s.mu.Unlock()
}

// record appends one entry to the stored conversation.
func (s *Session) record(fromAgent, text string) {
	s.mu.Lock()
	s.nextMsg++
	s.messages = append(s.messages, StoredMessage{
		ID:        s.nextMsg,
		SessionID: s.ID,
		FromAgent: fromAgent,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	s.mu.Unlock()
}

// Chat delivers a user message into the session. Returns false when the
// session no longer accepts input.
func (s *Session) Chat(message string) bool {
	if !s.Live() {
		return false
	}
	s.record("user", message)
	select {
	case s.inbox <- message:
	default:
		// A flooded inbox drops the turn trigger, not the stored message.
	}
	return true
}

// Stop ends the session: the feed winds down, emits its terminal event, and
// the session stays in the registry as history. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-s.done
		s.setStatus(team.SessionStopped)
	}
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Registry holds every session the playground has run, live and finished.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new running session and starts its scripted feed.
func (r *Registry) Create(agents []AgentSpec) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        "sess-" + hexid.Long(),
		CreatedAt: time.Now().UTC(),
		Agents:    agents,
		status:    team.SessionRunning,
		subs:      make(map[chan []byte]struct{}),
		inbox:     make(chan string, 16),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	go func() {
		defer close(s.done)
		runFeed(ctx, s)
	}()
	return s
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns all sessions, newest first.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete stops a session if needed and removes it from the registry.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Stop()
	}
	return ok
}

// StopAll stops every live session.
func (r *Registry) StopAll() {
	for _, s := range r.List() {
		s.Stop()
	}
}

// leaderName returns the roster's leader, or the first agent.
func leaderName(agents []AgentSpec) string {
	for _, a := range agents {
		if a.Role == string(team.RoleLeader) {
			return a.Name
		}
	}
	if len(agents) > 0 {
		return agents[0].Name
	}
	return "Leader"
}

func taskID(n int) protocol.FlexID {
	return protocol.FlexID(strconv.Itoa(n))
}
