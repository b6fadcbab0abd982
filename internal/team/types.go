// Package team holds the session aggregate: the agent roster, conversation,
// task list, and per-agent activity, owned by a single observable Store.
package team

import "time"

// Role distinguishes the team leader from regular teammates.
type Role string

const (
	RoleLeader   Role = "leader"
	RoleTeammate Role = "teammate"
)

// Known model providers. The set is open on the wire; these are the ones the
// playground backend accepts credentials for.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderKimi      = "kimi"
	ProviderOllama    = "ollama"
)

// Agent is one configured member of the roster.
type Agent struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         Role     `json:"role"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Connections  []string `json:"connections,omitempty"` // ids of connected agents

	// Layout geometry from the design scene, kept so a re-parse can be
	// round-tripped. Zero when the agent was not placed on a canvas.
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// MessageRole identifies who produced a conversation entry.
type MessageRole string

const (
	MessageRoleUser   MessageRole = "user"
	MessageRoleAgent  MessageRole = "agent"
	MessageRoleSystem MessageRole = "system"
)

// Message is one conversation entry. Messages are append-only within a
// session; presentation order is arrival order, not timestamp order.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	AgentName string      `json:"agent_name,omitempty"` // set when Role == agent
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one entry in the session task list, upserted by id.
type Task struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Activity is an agent's current working state.
type Activity string

const (
	ActivityIdle    Activity = "idle"
	ActivityWorking Activity = "working"
	ActivityBlocked Activity = "blocked"
)

// AgentState is the per-agent activity entry, keyed by agent name.
// Last write wins.
type AgentState struct {
	AgentName   string   `json:"agent_name"`
	State       Activity `json:"state"`
	CurrentTask string   `json:"current_task,omitempty"`
}

// Mode is the client-local lifecycle of the team view.
type Mode string

const (
	ModeDesign  Mode = "design"
	ModeRunning Mode = "running"
	ModeStopped Mode = "stopped"
)

// Session status values reported by the backend.
const (
	SessionCreated   = "created"
	SessionRunning   = "running"
	SessionStopped   = "stopped"
	SessionCompleted = "completed"
	SessionError     = "error"
)
