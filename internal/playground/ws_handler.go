package playground

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// handleSessionWebSocket bridges the session's event stream onto a
// WebSocket. Frames are the same JSON envelopes the SSE endpoint carries.
func (srv *Server) handleSessionWebSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()

	frames, cancel := s.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-frames:
			writeCtx, writeCancel := context.WithTimeout(ctx, 15*time.Second)
			err := ws.Write(writeCtx, websocket.MessageText, frame)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}
