package playground

import (
	"net/http"
	"time"
)

const streamKeepalive = 15 * time.Second

// handleStreamProbe answers liveness checks against the stream endpoint
// without opening a stream.
func (srv *Server) handleStreamProbe(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok || !s.Live() {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleSessionStream serves the session's event stream as SSE. Each event
// frame goes out as a data line; comment lines keep idle connections alive.
func (srv *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("retry: 2000\n\n"))
	flusher.Flush()

	frames, cancel := s.Subscribe()
	defer cancel()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame := <-frames:
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
