// Package playground hosts the local backend the control surface talks to:
// a session registry, the REST control plane, and the SSE/WebSocket event
// stream bridges. Sessions are driven by a scripted feed so teams can be
// exercised without provider credentials.
package playground

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crewdeck/crewdeck/internal/debug"
)

// Options configures playground server behavior.
type Options struct {
	Host      string
	Port      int
	TLSMode   string
	CertFile  string
	KeyFile   string
	AuthToken string
	RateLimit float64
}

// Server hosts the HTTP API and the session stream bridges.
type Server struct {
	registry   *Registry
	httpServer *http.Server
	host       string
	port       int
	tlsMode    string
	certFile   string
	keyFile    string
	authToken  string
	rateLimit  float64
}

// New constructs a playground server around a session registry.
func New(registry *Registry, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}

	// Port 0 binds an ephemeral port; callers wanting the conventional
	// address pass 8000 explicitly.
	port := opts.Port
	if port < 0 {
		port = 0
	}

	srv := &Server{
		registry:  registry,
		host:      host,
		port:      port,
		tlsMode:   strings.TrimSpace(opts.TLSMode),
		certFile:  strings.TrimSpace(opts.CertFile),
		keyFile:   strings.TrimSpace(opts.KeyFile),
		authToken: strings.TrimSpace(opts.AuthToken),
		rateLimit: opts.RateLimit,
	}

	mux := http.NewServeMux()
	srv.setupRoutes(mux)

	handler := corsMiddleware(logMiddleware(rateLimitMiddleware(srv.rateLimit, authMiddleware(srv.authToken, mux))))
	srv.httpServer = &http.Server{
		Addr:              srv.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

// Start starts the server in a background goroutine and returns immediately.
func (srv *Server) Start() error {
	if srv.httpServer == nil {
		return fmt.Errorf("playground server not initialized")
	}

	if srv.tlsMode != "" {
		var cert tls.Certificate
		var err error

		switch srv.tlsMode {
		case "self-signed":
			cert, err = generateSelfSignedCert(srv.host)
			if err != nil {
				return fmt.Errorf("generating self-signed certificate: %w", err)
			}
		case "custom":
			cert, err = tls.LoadX509KeyPair(srv.certFile, srv.keyFile)
			if err != nil {
				return fmt.Errorf("loading TLS certificate: %w", err)
			}
		default:
			return fmt.Errorf("unsupported TLS mode: %q", srv.tlsMode)
		}

		srv.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
	}

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return err
	}

	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		srv.port = tcpAddr.Port
		srv.httpServer.Addr = srv.Addr()
	}

	go func() {
		var err error
		if srv.tlsMode != "" {
			err = srv.httpServer.ServeTLS(ln, "", "")
		} else {
			err = srv.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.LogKV("playground", "server stopped with error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the HTTP server and all live sessions.
func (srv *Server) Shutdown(ctx context.Context) error {
	if srv.httpServer == nil {
		return nil
	}
	srv.registry.StopAll()
	return srv.httpServer.Shutdown(ctx)
}

// Addr returns the bound host:port address.
func (srv *Server) Addr() string {
	return net.JoinHostPort(srv.host, strconv.Itoa(srv.port))
}

// Scheme returns the URL scheme for the running server.
func (srv *Server) Scheme() string {
	if srv.tlsMode != "" {
		return "https"
	}
	return "http"
}

// URL returns the server's base URL.
func (srv *Server) URL() string {
	return srv.Scheme() + "://" + srv.Addr()
}

func (srv *Server) setupRoutes(mux *http.ServeMux) {
	// Session control plane
	mux.HandleFunc("POST /api/sessions", srv.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", srv.handleSessionStatus)
	mux.HandleFunc("DELETE /api/sessions/{id}", srv.handleStopSession)
	mux.HandleFunc("POST /api/sessions/{id}/chat", srv.handleChat)

	// Event stream bridges
	mux.HandleFunc("GET /api/sessions/{id}/stream", srv.handleSessionStream)
	mux.HandleFunc("HEAD /api/sessions/{id}/stream", srv.handleStreamProbe)
	mux.HandleFunc("GET /ws/sessions/{id}", srv.handleSessionWebSocket)

	// Stored conversations
	mux.HandleFunc("GET /api/history", srv.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", srv.handleSessionHistory)
	mux.HandleFunc("DELETE /api/history/{id}", srv.handleDeleteHistory)

	mux.HandleFunc("GET /api/health", srv.handleHealth)

	// Catch-all for unknown API routes
	mux.HandleFunc("/api/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}
