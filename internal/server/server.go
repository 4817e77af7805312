package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/orchestrator"
	"github.com/motoristapro/offerwatch/internal/orchestrator/trigger"
	"github.com/motoristapro/offerwatch/internal/overlay"
	"github.com/motoristapro/offerwatch/internal/settings"
	"github.com/motoristapro/offerwatch/internal/timer"
	"github.com/motoristapro/offerwatch/internal/trace"
)

// Controller is the part of the capture manager exposed over HTTP.
type Controller interface {
	HandleSignal(orchestrator.Signal) bool
	Hide()
	SetMonitoring(enabled bool)
	Status() orchestrator.Status
	Thresholds() offer.ThresholdConfig
	SetThresholds(ctx context.Context, t offer.ThresholdConfig) error
	ScreenText() string
}

// EventSource publishes overlay events, typically an *overlay.Bus.
type EventSource interface {
	Events() <-chan overlay.Event
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctrl       Controller
	timer      *timer.Timer
	history    settings.History
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a server. events and history may be nil; a nil tm gets a fresh
// timer.
func New(ctrl Controller, events EventSource, tm *timer.Timer, history settings.History) *Server {
	if tm == nil {
		tm = timer.New()
	}
	s := &Server{
		ctrl:       ctrl,
		timer:      tm,
		history:    history,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	tm.Watch(func(snap timer.Snapshot) { s.broadcast(newTimerMessage(snap)) })
	if events != nil {
		go s.broadcastOverlay(events.Events())
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/signal", s.handleSignal)
	mux.HandleFunc("POST /api/hide", s.handleHide)
	mux.HandleFunc("POST /api/monitoring/start", s.handleMonitoringStart)
	mux.HandleFunc("POST /api/monitoring/stop", s.handleMonitoringStop)
	mux.HandleFunc("GET /api/thresholds", s.handleGetThresholds)
	mux.HandleFunc("PUT /api/thresholds", s.handlePutThresholds)
	mux.HandleFunc("GET /api/readings", s.handleReadings)
	mux.HandleFunc("POST /api/timer/{action}", s.handleTimer)
	mux.HandleFunc("GET /api/capture", s.handleCapture)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	_ = wsjson.Write(baseCtx, conn, s.statusMessage())

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		msgCtx, _ := trace.EnsureContext(baseCtx)
		if tc, ok := trace.ExtractFromJSON(msg); ok {
			msgCtx = trace.WithContext(baseCtx, tc)
		}
		if reply := s.dispatch(msgCtx, base.Type, msg); reply != nil {
			_ = wsjson.Write(baseCtx, conn, reply)
		}
	}
}

// dispatch handles one inbound WebSocket message and returns an optional
// direct reply.
func (s *Server) dispatch(ctx context.Context, kind string, raw json.RawMessage) any {
	switch kind {
	case "signal":
		var m SignalMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return ErrorMessage{Type: "error", Message: "malformed signal"}
		}
		if !s.signal(ctx, m.Package, m.Kind) {
			return ErrorMessage{Type: "error", Message: "signal dropped"}
		}
	case "hide":
		s.ctrl.Hide()
	case "monitoring":
		var m MonitoringMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return ErrorMessage{Type: "error", Message: "malformed monitoring message"}
		}
		s.ctrl.SetMonitoring(m.Enabled)
		return s.statusMessage()
	case "timer":
		var m TimerCommand
		if err := json.Unmarshal(raw, &m); err != nil {
			return ErrorMessage{Type: "error", Message: "malformed timer command"}
		}
		if _, err := s.applyTimer(m); err != nil {
			return ErrorMessage{Type: "error", Message: err.Error()}
		}
	case "status":
		return s.statusMessage()
	default:
		return ErrorMessage{Type: "error", Message: "unknown message type " + strconv.Quote(kind)}
	}
	return nil
}

func (s *Server) signal(ctx context.Context, pkg, kind string) bool {
	k := orchestrator.WindowStateChanged
	if strings.TrimSpace(kind) != "" {
		k = trigger.ParseKind(kind)
	}
	ok := s.ctrl.HandleSignal(orchestrator.Signal{Package: pkg, Kind: k})
	trace.Logger(ctx).Debug("signal received", "package", pkg, "kind", k, "queued", ok)
	return ok
}

func (s *Server) applyTimer(cmd TimerCommand) (timer.Snapshot, error) {
	switch cmd.Action {
	case "start":
		return s.timer.Start(), nil
	case "pause":
		return s.timer.Pause(), nil
	case "resume":
		return s.timer.Resume(), nil
	case "stop":
		return s.timer.Stop(), nil
	case "sync":
		st, err := timer.ParseStatus(cmd.State)
		if err != nil {
			return timer.Snapshot{}, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "sync timer")
		}
		return s.timer.Sync(st, cmd.startedAt(), cmd.elapsed()), nil
	default:
		return timer.Snapshot{}, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown timer action %q", cmd.Action)
	}
}

func (s *Server) statusMessage() StatusMessage {
	return StatusMessage{
		Type:   "status",
		Status: s.ctrl.Status(),
		Timer:  newTimerMessage(s.timer.Snapshot()),
	}
}

func (s *Server) broadcastOverlay(events <-chan overlay.Event) {
	for evt := range events {
		s.broadcast(OverlayMessage{Type: "overlay", Event: evt})
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statusMessage())
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var m SignalMessage
	if err := decodeBody(w, r, &m); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(m.Package) == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "package is required"))
		return
	}
	if !s.signal(r.Context(), m.Package, m.Kind) {
		writeError(w, apperrors.New(apperrors.CodeUnavailable, "signal queue full"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleHide(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Hide()
	writeJSON(w, http.StatusOK, map[string]string{"status": "hidden"})
}

func (s *Server) handleMonitoringStart(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.SetMonitoring(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring_started"})
}

func (s *Server) handleMonitoringStop(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.SetMonitoring(false)
	writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring_stopped"})
}

func (s *Server) handleGetThresholds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Thresholds())
}

// handlePutThresholds accepts a full or partial threshold set; omitted fields
// keep their current value.
func (s *Server) handlePutThresholds(w http.ResponseWriter, r *http.Request) {
	t := s.ctrl.Thresholds()
	if err := decodeBody(w, r, &t); err != nil {
		writeError(w, err)
		return
	}
	if err := s.ctrl.SetThresholds(r.Context(), t); err != nil {
		trace.Logger(r.Context()).Warn("thresholds rejected", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Thresholds())
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	limit := DefaultReadingsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid limit %q", v))
			return
		}
		limit = min(n, MaxReadingsLimit)
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, []settings.Record{})
		return
	}
	records, err := s.history.RecentReadings(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []settings.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	cmd := TimerCommand{Type: "timer", Action: r.PathValue("action")}
	if cmd.Action == "sync" {
		if err := decodeBody(w, r, &cmd); err != nil {
			writeError(w, err)
			return
		}
		cmd.Action = "sync"
	}
	snap, err := s.applyTimer(cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimerMessage(snap))
}

func (s *Server) handleCapture(w http.ResponseWriter, _ *http.Request) {
	text := s.ctrl.ScreenText()
	if len(text) > TextPreviewLimit {
		text = text[:TextPreviewLimit] + "..."
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":        "Screen processed",
		"extracted_text": text,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidArgument, "malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeInternal
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	writeJSON(w, httpStatus(code), map[string]string{
		"error": err.Error(),
		"code":  code.String(),
	})
}

// httpStatus maps application error codes to HTTP status codes.
func httpStatus(c apperrors.Code) int {
	switch c {
	case apperrors.CodeInvalidArgument, apperrors.CodeConfigInvalid, apperrors.CodeOCRInvalidImage:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnavailable, apperrors.CodeOCRInitFailed:
		return http.StatusServiceUnavailable
	case apperrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.CodeCaptureUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
