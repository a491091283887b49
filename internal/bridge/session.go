package bridge

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"canvaszoom/internal/host"
	"canvaszoom/internal/zoompan"
)

// sendQueueSize bounds the frames waiting for the write pump. A client that
// falls this far behind is disconnected.
const sendQueueSize = 256

// session is one connected page. Frames are decoded on the read pump and
// applied on the scheduler goroutine, where the manager lives.
type session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	doc  *Document
	mgr  *zoompan.Manager

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(h *Hub, id string, conn *websocket.Conn) *session {
	s := &session{
		id:   id,
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	s.doc = NewDocument(s.enqueue)
	s.mgr = zoompan.NewManager(s.doc, h.opts.Scheduler, h.opts.Config,
		zoompan.WithRecorder(&sessionRecorder{hub: h, id: id}))
	return s
}

// enqueue marshals msg and queues it for the write pump.
func (s *session) enqueue(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Debug("[DEBUG-WS] failed to marshal frame", "session", s.id, "error", err)
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- payload:
		s.hub.rec.Frame("out", frameType(msg))
	default:
		slog.Warn("[DEBUG-WS] send queue full, closing session", "session", s.id)
		s.close("send queue full")
	}
}

func frameType(msg any) string {
	switch m := msg.(type) {
	case StyleMsg:
		return m.Type
	case BrushMsg:
		return m.Type
	case ConfigMsg:
		return m.Type
	case DiagMsg:
		return m.Type
	case ErrorMsg:
		return m.Type
	default:
		return "unknown"
	}
}

func (s *session) sendError(message string) {
	s.enqueue(ErrorMsg{Type: TypeError, Message: message})
}

func (s *session) close(reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			slog.Debug("[DEBUG-WS] connection close", "session", s.id, "reason", reason, "error", err)
		}
		s.hub.opts.Scheduler.Post(s.mgr.Close)
	})
}

// readPump decodes frames until the connection fails.
func (s *session) readPump() {
	for {
		msgType, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[DEBUG-WS] read error", "session", s.id, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.dispatch(frame)
	}
}

func (s *session) dispatch(frame []byte) {
	msg, err := Decode(frame)
	if err != nil {
		slog.Debug("[DEBUG-WS] rejected frame", "session", s.id, "error", err)
		s.sendError(err.Error())
		return
	}
	typ, _ := PeekType(frame)
	s.hub.rec.Frame("in", typ)
	slog.Debug("[DEBUG-WS] frame", "session", s.id, "type", typ, "layout", PeekLayout(frame))
	s.hub.opts.Scheduler.Post(func() { s.apply(msg) })
}

// apply runs on the scheduler goroutine.
func (s *session) apply(msg any) {
	select {
	case <-s.done:
		return
	default:
	}
	switch m := msg.(type) {
	case *HelloMsg:
		slog.Info("[DEBUG-WS] hello", "session", s.id, "page", m.Page)
		s.enqueue(s.configMsg())
		if s.hub.opts.Builtins {
			s.mgr.ApplyBuiltins()
		}
	case *AttachMsg:
		s.doc.Apply(m.Layout)
		s.mgr.ApplyZoomAndPan(m.Selector, m.Embedded)
	case *IntegrateMsg:
		s.doc.Apply(m.Layout)
		s.mgr.ApplyZoomAndPanIntegration(m.Trigger, m.Targets)
	case *EventMsg:
		s.doc.Apply(m.Layout)
		s.fire(m.Target, m.Event)
	case *LayoutMsg:
		s.doc.Apply(m.Layout)
	case *PreviewMsg:
		s.doc.Apply(m.Layout)
		s.mgr.SyncPreview(m.Selector)
	}
}

// mutate forwards a page-wide change to the manager on the scheduler.
func (s *session) mutate(mu host.Mutation) {
	s.hub.opts.Scheduler.Post(func() {
		select {
		case <-s.done:
			return
		default:
		}
		s.mgr.HandleEvent(host.Event{Kind: host.EventMutation, Mutation: &mu})
	})
}

// fire routes an event to the document handler or to the target element.
// The page decides preventDefault itself from the config frame, so the
// result is only logged.
func (s *session) fire(target string, ev host.Event) {
	var res host.Result
	if target == "" {
		res = s.mgr.HandleEvent(ev)
	} else if e := s.doc.Element(target); e != nil {
		res = e.Fire(ev)
	} else {
		slog.Debug("[DEBUG-WS] event for unknown element", "session", s.id, "target", target)
		return
	}
	if res.PreventDefault {
		slog.Debug("[DEBUG-WS] event handled", "session", s.id, "kind", ev.Kind, "target", target)
	}
}

func (s *session) configMsg() ConfigMsg {
	cfg := s.mgr.Config()
	return ConfigMsg{
		Type:     TypeConfig,
		Session:  s.id,
		Bindings: cfg.Bindings(),
		Flags:    cfg.Flags(),
		Tooltip:  s.mgr.Tooltip(),
		Disabled: cfg.DisabledFeatures(),
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (s *session) writePump() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] bridge writePump recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		s.close("write pump exit")
	}()

	ticker := time.NewTicker(s.hub.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			if !s.write(websocket.TextMessage, payload) {
				return
			}
		case <-ticker.C:
			if !s.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *session) write(msgType int, payload []byte) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetWriteDeadline failed, closing session", "session", s.id, "error", err)
		return false
	}
	if err := s.conn.WriteMessage(msgType, payload); err != nil {
		slog.Warn("[DEBUG-WS] write failed, closing session", "session", s.id, "error", err)
		return false
	}
	return true
}

// sessionRecorder sums canvas counts across sessions before reporting them.
type sessionRecorder struct {
	hub *Hub
	id  string
}

func (r *sessionRecorder) Gesture(name string) { r.hub.rec.Gesture(name) }

func (r *sessionRecorder) Canvases(n int) { r.hub.canvases(r.id, n) }
