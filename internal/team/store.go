package team

import (
	"sync"

	"github.com/crewdeck/crewdeck/internal/eventq"
)

// Store is the single owner of the session aggregate. All mutation goes
// through its transition methods; every transition is total and atomic, and
// readers get copies. Subscribers receive a coalesced change signal, not a
// diff, and are expected to re-read the parts they render.
type Store struct {
	mu          sync.RWMutex
	mode        Mode
	teamName    string
	sessionID   string
	agents      []Agent
	messages    []Message
	tasks       []Task
	agentStates map[string]AgentState
	subs        []chan struct{}
}

// NewStore returns an empty aggregate in design mode.
func NewStore() *Store {
	return &Store{
		mode:        ModeDesign,
		teamName:    "Untitled Team",
		agentStates: make(map[string]AgentState),
	}
}

// Subscribe registers a change listener. The channel carries a coalesced
// signal: if the subscriber lags, intermediate notifications collapse into
// one pending signal rather than blocking transitions.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// notifyLocked signals all subscribers. Callers must hold s.mu.
func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		eventq.Offer(ch, struct{}{})
	}
}

// SetMode moves the view lifecycle. Setting the current mode again is a
// no-op transition but still valid (terminal status events may repeat).
func (s *Store) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	s.notifyLocked()
}

// SetTeamName updates the display name of the team.
func (s *Store) SetTeamName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamName = name
	s.notifyLocked()
}

// SetSessionID records the server-issued session id. Empty means no session.
func (s *Store) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
	s.notifyLocked()
}

// SetAgents replaces the whole roster. The roster is rebuilt from the scene;
// agents are never removed individually mid-session.
func (s *Store) SetAgents(agents []Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append([]Agent(nil), agents...)
	s.notifyLocked()
}

// UpdateAgent merges a single agent by id: known id replaces in place,
// unknown id appends.
func (s *Store) UpdateAgent(a Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.agents {
		if s.agents[i].ID == a.ID {
			s.agents[i] = a
			s.notifyLocked()
			return
		}
	}
	s.agents = append(s.agents, a)
	s.notifyLocked()
}

// AppendMessage adds a conversation entry. Messages are never mutated or
// removed once appended.
func (s *Store) AppendMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	s.notifyLocked()
}

// SetMessages replaces the conversation wholesale (history restore).
func (s *Store) SetMessages(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]Message(nil), msgs...)
	s.notifyLocked()
}

// UpsertTask inserts a task with an unknown id or replaces a known id in
// place, preserving list position.
func (s *Store) UpsertTask(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == t.ID {
			s.tasks[i] = t
			s.notifyLocked()
			return
		}
	}
	s.tasks = append(s.tasks, t)
	s.notifyLocked()
}

// SetTasks replaces the task list wholesale (history restore).
func (s *Store) SetTasks(tasks []Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]Task(nil), tasks...)
	s.notifyLocked()
}

// SetAgentState records per-agent activity, keyed by agent name.
// Last write wins.
func (s *Store) SetAgentState(st AgentState) {
	if st.AgentName == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentStates[st.AgentName] = st
	s.notifyLocked()
}

// Reset returns the aggregate to its initial state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeDesign
	s.teamName = "Untitled Team"
	s.sessionID = ""
	s.agents = nil
	s.messages = nil
	s.tasks = nil
	s.agentStates = make(map[string]AgentState)
	s.notifyLocked()
}

// Mode returns the current view lifecycle state.
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// TeamName returns the display name of the team.
func (s *Store) TeamName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamName
}

// SessionID returns the active session id, or "" when there is none.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Agents returns a copy of the roster.
func (s *Store) Agents() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Agent(nil), s.agents...)
}

// Messages returns a copy of the conversation in arrival order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Tasks returns a copy of the task list in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Task(nil), s.tasks...)
}

// AgentStates returns a copy of the per-agent activity map.
func (s *Store) AgentStates() map[string]AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]AgentState, len(s.agentStates))
	for k, v := range s.agentStates {
		out[k] = v
	}
	return out
}

// AgentState returns the activity entry for one agent name. Agents with no
// recorded activity report idle.
func (s *Store) AgentState(name string) AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.agentStates[name]; ok {
		return st
	}
	return AgentState{AgentName: name, State: ActivityIdle}
}
