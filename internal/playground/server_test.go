package playground

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/stream"
	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/pkg/protocol"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	old := feedDelay
	feedDelay = 2 * time.Millisecond
	t.Cleanup(func() { feedDelay = old })

	registry := NewRegistry()
	srv := New(registry, opts)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(func() {
		registry.StopAll()
		ts.Close()
	})
	return ts
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t, Options{})
	client := api.NewClient(ts.URL, "")

	_, err := client.CreateSession(context.Background(), api.CreateSessionRequest{})
	if err == nil || !strings.Contains(err.Error(), "at least one agent") {
		t.Fatalf("empty roster error = %v", err)
	}

	_, err = client.CreateSession(context.Background(), api.CreateSessionRequest{
		Agents: []api.RosterAgent{{Name: "  "}},
	})
	if err == nil || !strings.Contains(err.Error(), "agent name required") {
		t.Fatalf("blank name error = %v", err)
	}
}

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ts := newTestServer(t, Options{})
	client := api.NewClient(ts.URL, "")
	ctx := context.Background()

	resp, err := client.CreateSession(ctx, api.CreateSessionRequest{
		Agents: []api.RosterAgent{
			{Name: "Planner", Role: "leader", Provider: "anthropic", Model: "m"},
			{Name: "Coder", Provider: "anthropic", Model: "m"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if resp.Status != team.SessionRunning || len(resp.Agents) != 2 {
		t.Fatalf("create response = %+v", resp)
	}
	if !client.CheckSession(ctx, resp.SessionID) {
		t.Fatal("fresh session should probe as live")
	}

	store := team.NewStore()
	ctrl := stream.New(store, client, stream.WithIdleDebounce(10*time.Millisecond))
	defer ctrl.Close()
	ctrl.Connect(resp.SessionID)

	// The scripted feed greets, works the warm-up task, and settles.
	waitUntil(t, 5*time.Second, func() bool {
		if len(store.Messages()) < 2 {
			return false
		}
		tasks := store.Tasks()
		return len(tasks) == 1 && tasks[0].Status == team.TaskCompleted
	})

	if err := client.SendMessage(ctx, resp.SessionID, "build the parser"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool {
		for _, m := range store.Messages() {
			if m.Role == team.MessageRoleAgent && strings.Contains(m.Content, "build the parser") {
				return true
			}
		}
		return false
	})

	if err := client.StopSession(ctx, resp.SessionID); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool {
		return store.Mode() == team.ModeStopped
	})
	if client.CheckSession(ctx, resp.SessionID) {
		t.Fatal("stopped session should not probe as live")
	}

	// The conversation survives as history.
	hist, err := client.SessionHistory(ctx, resp.SessionID)
	if err != nil {
		t.Fatalf("SessionHistory: %v", err)
	}
	if len(hist.Messages) < 3 {
		t.Fatalf("stored message count = %d, want at least 3", len(hist.Messages))
	}
	foundUser := false
	for _, m := range hist.Messages {
		if m.FromAgent == "user" && m.Text == "build the parser" {
			foundUser = true
		}
	}
	if !foundUser {
		t.Fatal("user chat message missing from history")
	}

	if err := client.DeleteHistory(ctx, resp.SessionID); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	if _, err := client.SessionHistory(ctx, resp.SessionID); err == nil {
		t.Fatal("deleted session should 404")
	}
}

func TestChatRejectedAfterStop(t *testing.T) {
	ts := newTestServer(t, Options{})
	client := api.NewClient(ts.URL, "")
	ctx := context.Background()

	resp, err := client.CreateSession(ctx, api.CreateSessionRequest{
		Agents: []api.RosterAgent{{Name: "Solo", Role: "leader"}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := client.StopSession(ctx, resp.SessionID); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	err = client.SendMessage(ctx, resp.SessionID, "anyone there?")
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Fatalf("chat after stop error = %v", err)
	}
}

func TestWebSocketBridgeCarriesEvents(t *testing.T) {
	ts := newTestServer(t, Options{})
	client := api.NewClient(ts.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.CreateSession(ctx, api.CreateSessionRequest{
		Agents: []api.RosterAgent{{Name: "Planner", Role: "leader"}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + resp.SessionID
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.CloseNow()

	if err := client.SendMessage(ctx, resp.SessionID, "ping"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// Every frame on the wire must decode as a known event.
	for i := 0; i < 3; i++ {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("websocket read %d: %v", i, err)
		}
		if typ != websocket.MessageText {
			t.Fatalf("message type = %v", typ)
		}
		if ev := protocol.Decode(data); ev == nil {
			t.Fatalf("frame %d does not decode: %s", i, data)
		}
	}
}

func TestHistoryListsNewestFirst(t *testing.T) {
	ts := newTestServer(t, Options{})
	client := api.NewClient(ts.URL, "")
	ctx := context.Background()

	first, err := client.CreateSession(ctx, api.CreateSessionRequest{
		Agents: []api.RosterAgent{{Name: "A", Role: "leader"}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := client.CreateSession(ctx, api.CreateSessionRequest{
		Agents: []api.RosterAgent{{Name: "B", Role: "leader"}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sessions, err := client.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("session count = %d", len(sessions))
	}
	if sessions[0].ID != second.SessionID || sessions[1].ID != first.SessionID {
		t.Fatalf("order = %s, %s", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].Config == nil || len(sessions[0].Config.Agents) != 1 {
		t.Fatalf("config echo missing: %+v", sessions[0].Config)
	}
}

func TestAuthTokenGuardsAPI(t *testing.T) {
	ts := newTestServer(t, Options{AuthToken: "secret"})

	unauth := api.NewClient(ts.URL, "")
	if _, err := unauth.History(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("unauthenticated error = %v", err)
	}

	authed := api.NewClient(ts.URL, "secret")
	if _, err := authed.History(context.Background()); err != nil {
		t.Fatalf("authenticated History: %v", err)
	}
}
