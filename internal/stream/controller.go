// Package stream owns the live subscription to a session's event stream:
// it decodes inbound frames and folds them into Store transitions, and
// manages the connection lifecycle across reconnects.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/debug"
	"github.com/crewdeck/crewdeck/internal/hexid"
	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/pkg/protocol"
)

// ConnState is the controller's connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns the lifecycle state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// DefaultIdleDebounce is the minimum time an agent stays visibly "working"
// after its turn ends. Very short turns would otherwise flicker.
const DefaultIdleDebounce = 2 * time.Second

// Controller maintains at most one live stream subscription and translates
// decoded events into store transitions, applied strictly in receipt order.
// It performs no deduplication: a frame redelivered after a reconnect is
// applied again.
type Controller struct {
	store    *team.Store
	api      *api.Client
	hc       *http.Client
	debounce time.Duration
	retry    time.Duration
	now      func() time.Time

	mu        sync.Mutex
	state     ConnState
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
	gen       map[string]uint64
	timers    map[string]*time.Timer
}

// Option configures a Controller.
type Option func(*Controller)

// WithIdleDebounce overrides the minimum visible working duration.
func WithIdleDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithRetryInterval overrides the transport redial delay.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Controller) { c.retry = d }
}

// WithClock overrides the time source for generated message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New wires a controller to its store and API client. The store and client
// are injected, never looked up ambiently.
func New(store *team.Store, client *api.Client, opts ...Option) *Controller {
	// The stream client carries no request timeout: reads are long-lived.
	c := &Controller{
		store:    store,
		api:      client,
		hc:       &http.Client{},
		debounce: DefaultIdleDebounce,
		retry:    DefaultRetryInterval,
		now:      time.Now,
		gen:      make(map[string]uint64),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect subscribes to the event stream of the given session. An existing
// connection is fully closed first; the controller never holds two
// connections at once. An empty session id only disconnects.
func (c *Controller) Connect(sessionID string) {
	c.Close()
	if sessionID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.sessionID = sessionID
	c.state = StateConnecting
	c.mu.Unlock()

	tr := &sseTransport{
		url:   c.api.StreamURL(sessionID),
		hc:    c.hc,
		retry: c.retry,
		onConnect: func() {
			c.setState(StateConnected)
			debug.LogKV("stream", "connected", "session", sessionID)
		},
		onFrame: c.handleFrame,
		onDisconnect: func(err error) {
			// Transport errors do not touch application state; the
			// transport redials on its own.
			c.setState(StateConnecting)
		},
	}

	go func() {
		defer close(done)
		tr.run(ctx)
		c.setState(StateDisconnected)
	}()
}

// Close tears down the subscription. It is synchronous: when it returns the
// old connection is fully released and pending idle timers are dropped.
// Safe to call when already disconnected.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.sessionID = ""
	for name, tm := range c.timers {
		tm.Stop()
		delete(c.timers, name)
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.setState(StateDisconnected)
}

// State returns the connection lifecycle state.
func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the session the controller is subscribed to.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// handleFrame decodes one transport frame and applies it. Frames that do not
// decode are dropped silently: one malformed frame must never stall the
// stream.
func (c *Controller) handleFrame(eventType string, data []byte) {
	ev := protocol.Decode(data)
	if ev == nil {
		debug.LogKV("stream", "dropping undecodable frame", "sse_type", eventType, "len", len(data))
		return
	}
	c.apply(ev)
}

// apply folds one decoded event into the store. Transitions run to
// completion before the next frame is read, so two events' effects never
// interleave.
func (c *Controller) apply(ev *protocol.Event) {
	switch ev.Type {
	case protocol.EventAgentResponse:
		content := ev.ResponseData().Content
		if content == "" {
			return // no empty bubbles
		}
		c.store.AppendMessage(c.newMessage(team.MessageRoleAgent, content, ev.Agent))

	case protocol.EventAgentMessage:
		d := ev.DirectMessageData()
		c.appendSystem(ev.Agent+" → "+d.To+": "+d.Body(), ev.Agent)

	case protocol.EventToolCall:
		c.appendSystem(ev.Agent+" called "+ev.ToolCallData().Tool, ev.Agent)

	case protocol.EventThinking, protocol.EventTurnStart:
		c.markWorking(ev.Agent)

	case protocol.EventTurnEnd:
		c.scheduleIdle(ev.Agent)

	case protocol.EventTaskUpdate:
		c.applyTask(ev)

	case protocol.EventError:
		msg := ev.ErrorData().Message
		if msg == "" {
			msg = "Unknown error"
		}
		c.appendSystem("Error: "+msg, ev.Agent)

	case protocol.EventSessionEnd:
		c.appendSystem("Session complete. All agents finished.", "")
		c.store.SetMode(team.ModeStopped)

	case protocol.EventProtocolMessage:
		c.applyControl(ev)

	case protocol.EventSessionStart, protocol.EventToolResult:
		// Not rendered in the conversation.
	}
}

func (c *Controller) applyTask(ev *protocol.Event) {
	d := ev.TaskData()
	if d.ID == "" {
		debug.LogKV("stream", "task_update without id dropped", "agent", ev.Agent)
		return
	}
	status := team.TaskStatus(d.Status)
	if status == "" {
		status = team.TaskPending
	}
	ts := ev.Time(c.now())
	c.store.UpsertTask(team.Task{
		ID:          d.ID.String(),
		SessionID:   c.SessionID(),
		Description: d.Text(),
		Status:      status,
		AssignedTo:  d.Owner,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
}

// applyControl renders inter-agent coordination frames with a fixed
// template per sub-kind.
func (c *Controller) applyControl(ev *protocol.Event) {
	d := ev.ControlData()
	from := d.From
	if from == "" {
		from = ev.Agent
	}
	if from == "" {
		from = "system"
	}

	switch d.ProtocolType {
	case protocol.ControlIdleNotification:
		c.markIdleNow(from)
		c.appendSystem(from+" is now idle", ev.Agent)
	case protocol.ControlShutdownRequest:
		c.appendSystem("Shutdown requested: "+d.Reason, "")
	case protocol.ControlShutdownApproved:
		c.appendSystem(from+" approved shutdown", ev.Agent)
	case protocol.ControlTaskAssignment:
		c.appendSystem("Task #"+d.TaskID.String()+" assigned to "+d.AssignedTo, ev.Agent)
	case protocol.ControlTaskCompleted:
		c.appendSystem(from+" completed task #"+d.TaskID.String()+": "+d.TaskSubject, ev.Agent)
	case protocol.ControlPlanApprovalRequest:
		c.appendSystem(from+" requests plan approval (request: "+d.RequestID+")", ev.Agent)
	case protocol.ControlPlanApprovalResponse:
		verdict := "rejected"
		if d.Approve {
			verdict = "approved"
		}
		c.appendSystem("Plan "+verdict+" by "+from+" (request: "+d.RequestID+")", ev.Agent)
	default:
		debug.LogKV("stream", "unknown protocol_message sub-kind dropped", "protocol_type", d.ProtocolType)
	}
}

// markWorking flips an agent to working and invalidates any pending delayed
// idle for it: a stale idle must never resurrect after a newer turn starts.
func (c *Controller) markWorking(agent string) {
	if agent == "" {
		return
	}
	c.mu.Lock()
	c.gen[agent]++
	if tm := c.timers[agent]; tm != nil {
		tm.Stop()
		delete(c.timers, agent)
	}
	c.mu.Unlock()
	c.store.SetAgentState(team.AgentState{AgentName: agent, State: team.ActivityWorking})
}

// scheduleIdle flips an agent to idle after the debounce window, unless a
// newer working transition supersedes it first. The generation counter is
// the staleness token: the delayed transition only lands if no working
// transition bumped it in between.
func (c *Controller) scheduleIdle(agent string) {
	if agent == "" {
		return
	}
	c.mu.Lock()
	gen := c.gen[agent]
	if tm := c.timers[agent]; tm != nil {
		tm.Stop()
	}
	c.timers[agent] = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		stale := c.gen[agent] != gen
		if !stale {
			delete(c.timers, agent)
		}
		c.mu.Unlock()
		if stale {
			return
		}
		c.store.SetAgentState(team.AgentState{AgentName: agent, State: team.ActivityIdle})
	})
	c.mu.Unlock()
}

// markIdleNow applies an immediate idle (explicit idle notification from the
// protocol), cancelling any pending debounce for the agent.
func (c *Controller) markIdleNow(agent string) {
	if agent == "" {
		return
	}
	c.mu.Lock()
	c.gen[agent]++
	if tm := c.timers[agent]; tm != nil {
		tm.Stop()
		delete(c.timers, agent)
	}
	c.mu.Unlock()
	c.store.SetAgentState(team.AgentState{AgentName: agent, State: team.ActivityIdle})
}

func (c *Controller) appendSystem(content, agentName string) {
	c.store.AppendMessage(c.newMessage(team.MessageRoleSystem, content, agentName))
}

func (c *Controller) newMessage(role team.MessageRole, content, agentName string) team.Message {
	return team.Message{
		ID:        "msg-" + hexid.Long(),
		SessionID: c.SessionID(),
		Role:      role,
		AgentName: agentName,
		Content:   content,
		Timestamp: c.now(),
	}
}
