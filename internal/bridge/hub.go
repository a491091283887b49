package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
	"canvaszoom/internal/zoompan"
)

// writeDeadline is the maximum time allowed for a single websocket write.
const writeDeadline = 5 * time.Second

// readDeadline is the maximum time the server waits for any read activity,
// pongs included, before considering the connection dead.
const readDeadline = 90 * time.Second

// defaultPingInterval keeps readDeadline at three missed pings.
const defaultPingInterval = 30 * time.Second

// maxReadMessageSize bounds an incoming frame. Layout snapshots for a page
// full of canvases stay well below it.
const maxReadMessageSize = 256 * 1024

// Recorder observes bridge and engine activity.
type Recorder interface {
	zoompan.Recorder
	Sessions(n int)
	Frame(direction, frameType string)
}

type nopRecorder struct{}

func (nopRecorder) Gesture(string)       {}
func (nopRecorder) Canvases(int)         {}
func (nopRecorder) Sessions(int)         {}
func (nopRecorder) Frame(string, string) {}

// Options configures the hub.
type Options struct {
	// Addr is the listen address. Use "127.0.0.1:0" for an OS-assigned port.
	Addr string
	// AllowedOrigins lists accepted Origin headers. Empty accepts any
	// origin; the default address is loopback only.
	AllowedOrigins []string
	// Config is the resolved hotkey configuration shared by all sessions.
	Config hotkeys.Config
	// Scheduler runs every engine call. Required.
	Scheduler host.Scheduler
	// Recorder receives metrics. Nil disables them.
	Recorder Recorder
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Builtins attaches the built-in image-to-image canvases on hello.
	Builtins bool
	// PingInterval overrides the keepalive interval.
	PingInterval time.Duration
}

// Hub accepts page connections and runs one zoom/pan manager per page.
//
// mu protects sessions and counts. Sessions never hold mu while writing.
type Hub struct {
	opts Options
	rec  Recorder

	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session
	counts   map[string]int

	listener net.Listener
	server   *http.Server
	url      string

	closeOnce sync.Once
}

// NewHub creates a hub. It is not listening until Start is called.
func NewHub(opts Options) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	h := &Hub{
		opts:     opts,
		rec:      opts.Recorder,
		sessions: map[string]*session{},
		counts:   map[string]int{},
	}
	if h.rec == nil {
		h.rec = nopRecorder{}
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, origin)
}

// Handler returns the HTTP routes: /ws, /healthz and, when configured,
// /metrics.
func (h *Hub) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", h.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}
	return r
}

// Start listens on the configured address and serves in the background.
// ctx becomes the base context of every request.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("bridge: already started")
	}
	if h.opts.Scheduler == nil {
		return fmt.Errorf("bridge: scheduler is required")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("bridge: listen: %w", err)
	}
	h.listener = ln
	h.url = fmt.Sprintf("ws://%s/ws", ln.Addr().String())

	h.server = &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop closes every session and shuts the server down. Safe to call more
// than once.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		sessions := make([]*session, 0, len(h.sessions))
		for _, s := range h.sessions {
			sessions = append(sessions, s)
		}
		h.mu.Unlock()

		for _, s := range sessions {
			s.close("hub stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("bridge: shutdown: %w", err)
			}
		}
		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the websocket URL, or "" before Start.
func (h *Hub) URL() string { return h.url }

// Sessions returns the number of connected pages.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// BroadcastDiag forwards a log record to every connected page.
func (h *Hub) BroadcastDiag(level slog.Level, message string, attrs map[string]any) {
	msg := DiagMsg{Type: TypeDiag, Level: level.String(), Message: message, Attrs: attrs}
	for _, s := range h.snapshot() {
		s.enqueue(msg)
	}
}

// BroadcastMutation delivers an external page change to the engine of every
// connected page.
func (h *Hub) BroadcastMutation(mu host.Mutation) {
	for _, s := range h.snapshot() {
		s.mutate(mu)
	}
}

func (h *Hub) snapshot() []*session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	n := len(h.sessions)
	h.mu.Unlock()
	h.rec.Sessions(n)
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	delete(h.counts, s.id)
	n := len(h.sessions)
	total := h.totalLocked()
	h.mu.Unlock()
	h.rec.Sessions(n)
	h.rec.Canvases(total)
}

// canvases records the canvas count of one session and reports the total.
func (h *Hub) canvases(id string, n int) {
	h.mu.Lock()
	if _, ok := h.sessions[id]; ok {
		h.counts[id] = n
	}
	total := h.totalLocked()
	h.mu.Unlock()
	h.rec.Canvases(total)
}

func (h *Hub) totalLocked() int {
	total := 0
	for _, n := range h.counts {
		total += n
	}
	return total
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		_ = conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	s := newSession(h, uuid.NewString(), conn)
	h.register(s)
	slog.Info("[DEBUG-WS] client connected", "session", s.id, "remoteAddr", conn.RemoteAddr())

	go s.writePump()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] bridge handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		s.close("read pump exit")
		h.unregister(s)
		slog.Info("[DEBUG-WS] client disconnected", "session", s.id)
	}()

	s.readPump()
}
