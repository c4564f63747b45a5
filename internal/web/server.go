// Package web provides the HTTP status interface for the home-monitor daemon.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/sweeney/home-monitor/internal/status"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{}

// Options configures a Server.
type Options struct {
	// LiveInterval is how often /ws clients are checked for a changed status.
	LiveInterval time.Duration

	// AccessLog, if set, receives one Apache-style line per request.
	AccessLog io.Writer
}

// Server serves the status store over HTTP.
type Server struct {
	httpServer *http.Server
	store      *status.Store
	live       time.Duration
	logger     *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Server that reads state from the given store.
func New(addr string, store *status.Store, o Options) *Server {
	if o.LiveInterval <= 0 {
		o.LiveInterval = time.Second
	}
	s := &Server{
		store:  store,
		live:   o.LiveInterval,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus)
	r.HandleFunc("/index.json", s.handleJSON)
	r.HandleFunc("/ws", s.handleLive)
	r.NotFoundHandler = http.HandlerFunc(s.handleIndex)

	var h http.Handler = r
	if o.AccessLog != nil {
		h = handlers.LoggingHandler(o.AccessLog, h)
	}
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(panicLogger{s.logger}))(h)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown closes live streams and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Read()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatStatus(snap))
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Read()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleIndex serves the status page for every path without its own route.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Read()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.logger.Warn("http: render page", "error", err)
	}
}

// handleLive streams the four-field status object: once on connect, then
// whenever it changes. The stream ends when the client goes away or the
// server shuts down.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("http: websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last status.StatusJSON
	send := func(force bool) error {
		cur := status.Status(s.store.Read())
		if !force && cur == last {
			return nil
		}
		last = cur
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(cur)
	}

	if err := send(true); err != nil {
		return
	}

	ticker := time.NewTicker(s.live)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-gone:
			return
		case <-ticker.C:
			if err := send(false); err != nil {
				s.logger.Debug("http: websocket write", "error", err)
				return
			}
		}
	}
}

// panicLogger adapts slog to the handlers recovery logger.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) Println(v ...interface{}) {
	l.logger.Error("http: handler panic", "panic", fmt.Sprint(v...))
}
