package playground

import (
	"context"
	"fmt"
	"time"

	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/pkg/protocol"
)

// feedDelay paces scripted events so a live stream reads like a working
// team. Tests shorten it.
var feedDelay = 150 * time.Millisecond

// runFeed drives one session with a scripted exchange: the leader greets,
// breaks the goal into tasks, teammates work them, and afterwards the leader
// answers every chat message until the session is stopped.
func runFeed(ctx context.Context, s *Session) {
	leader := leaderName(s.Agents)
	defer s.finish()

	s.publish(protocol.Event{Type: protocol.EventSessionStart})

	s.agentSays(ctx, leader, fmt.Sprintf(
		"Team assembled with %d agents. I'll coordinate. Send a message to set the goal.", len(s.Agents)))

	taskNum := 0
	for _, a := range s.Agents {
		if a.Name == leader {
			continue
		}
		taskNum++
		mustData(s, protocol.Event{Type: protocol.EventTaskUpdate, Agent: leader}, protocol.TaskData{
			ID:      taskID(taskNum),
			Subject: "Warm up and report readiness",
			Status:  string(team.TaskInProgress),
			Owner:   a.Name,
		})
		if !pause(ctx, s) {
			return
		}
		s.teammateWorks(ctx, a.Name, taskNum)
	}

	s.publishControl(leader, protocol.ControlData{
		ProtocolType: protocol.ControlIdleNotification,
		From:         leader,
	})

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.inbox:
			s.agentSays(ctx, leader, fmt.Sprintf("Understood: %q. I'll take it from here.", msg))
		}
	}
}

// agentSays runs one visible turn for an agent: turn_start, thinking, the
// response, then turn_end.
func (s *Session) agentSays(ctx context.Context, agent, text string) {
	s.publish(protocol.Event{Type: protocol.EventTurnStart, Agent: agent})
	if !pause(ctx, s) {
		return
	}
	s.publish(protocol.Event{Type: protocol.EventThinking, Agent: agent})
	if !pause(ctx, s) {
		return
	}
	ev := protocol.Event{Type: protocol.EventAgentResponse, Agent: agent}
	mustData(s, ev, protocol.ResponseData{Content: text})
	s.record(agent, text)
	s.publish(protocol.Event{Type: protocol.EventTurnEnd, Agent: agent})
}

// teammateWorks simulates one teammate completing its warm-up task.
func (s *Session) teammateWorks(ctx context.Context, agent string, task int) {
	s.publish(protocol.Event{Type: protocol.EventTurnStart, Agent: agent})
	if !pause(ctx, s) {
		return
	}

	call := protocol.Event{Type: protocol.EventToolCall, Agent: agent}
	mustData(s, call, protocol.ToolCallData{Tool: "self_check"})
	if !pause(ctx, s) {
		return
	}

	resp := protocol.Event{Type: protocol.EventAgentResponse, Agent: agent}
	text := agent + " reporting in: ready to work."
	mustData(s, resp, protocol.ResponseData{Content: text})
	s.record(agent, text)

	done := protocol.Event{Type: protocol.EventTaskUpdate, Agent: agent}
	mustData(s, done, protocol.TaskData{
		ID:      taskID(task),
		Subject: "Warm up and report readiness",
		Status:  string(team.TaskCompleted),
		Owner:   agent,
	})

	s.publishControl(agent, protocol.ControlData{
		ProtocolType: protocol.ControlTaskCompleted,
		From:         agent,
		TaskID:       taskID(task),
		TaskSubject:  "Warm up and report readiness",
	})

	s.publish(protocol.Event{Type: protocol.EventTurnEnd, Agent: agent})
}

func (s *Session) publishControl(agent string, d protocol.ControlData) {
	ev := protocol.Event{Type: protocol.EventProtocolMessage, Agent: agent}
	mustData(s, ev, d)
}

// finish emits the terminal event and freezes the session as history.
// Idempotent: only the first call lands.
func (s *Session) finish() {
	s.mu.Lock()
	already := s.status != team.SessionRunning
	if !already {
		s.status = team.SessionCompleted
	}
	s.mu.Unlock()
	if already {
		return
	}
	s.publish(protocol.Event{Type: protocol.EventSessionEnd})
}

// mustData attaches a payload and publishes; payload types here always
// marshal.
func mustData(s *Session, ev protocol.Event, data any) {
	if err := protocol.MarshalData(&ev, data); err != nil {
		return
	}
	s.publish(ev)
}

// pause sleeps one feed beat, reporting false when the session ended first.
func pause(ctx context.Context, s *Session) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(feedDelay):
		return true
	}
}
