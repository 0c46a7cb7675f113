// Package server provides the HTTP and WebSocket surface for the UI
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
	"github.com/Dedeep007/SAGE/internal/monitor"
	"github.com/Dedeep007/SAGE/internal/orchestrator"
	"github.com/Dedeep007/SAGE/internal/store"
	"github.com/Dedeep007/SAGE/internal/suggest"
	"github.com/Dedeep007/SAGE/internal/trace"
	"github.com/Dedeep007/SAGE/internal/voice"
)

// Backend is the slice of the orchestrator the server fronts.
type Backend interface {
	Chat(ctx context.Context, sessionID, message string, includeScreen bool, onChunk func(string)) (string, error)
	CurrentContext() *monitor.ScreenContext
	ForceCapture(ctx context.Context) (*monitor.ScreenContext, error)
	StartMonitor()
	StopMonitor()
	MonitorStatus() orchestrator.MonitorStatus
	History(limit int, sessionID string) ([]store.Conversation, error)
	SearchHistory(query string, limit int) ([]store.Conversation, error)
	Preference(key string) (string, error)
	SetPreference(key, value string) error
	Stats() (orchestrator.SystemStats, error)
	Suggestions() <-chan suggest.Suggestion
	Transcripts() <-chan voice.Result
}

// Inbound chat frame.
type chatRequest struct {
	Type          string `json:"type"`
	Content       string `json:"content"`
	SessionID     string `json:"session_id,omitempty"`
	IncludeScreen *bool  `json:"include_screen,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
}

// Outbound frames.
type startFrame struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

type chunkFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type doneFrame struct {
	Type string `json:"type"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type suggestionFrame struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type transcriptFrame struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	backend Backend
	limiter *ipLimiter

	mu              sync.RWMutex
	suggestionConns map[*websocket.Conn]struct{}
	transcriptConns map[*websocket.Conn]struct{}

	stopCh    chan struct{}
	closeOnce sync.Once
}

// New creates the server and starts the broadcast pumps.
func New(backend Backend) *Server {
	s := &Server{
		backend:         backend,
		limiter:         newIPLimiter(IPRateLimitMessages, IPRateLimitWindow),
		suggestionConns: make(map[*websocket.Conn]struct{}),
		transcriptConns: make(map[*websocket.Conn]struct{}),
		stopCh:          make(chan struct{}),
	}

	go s.broadcastSuggestions()
	go s.broadcastTranscripts()
	go s.limiterJanitor()

	return s
}

// Close stops the background janitor. Broadcast pumps exit when the
// backend closes its channels.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.stopCh) })
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoints
	mux.HandleFunc("/ws/chat", s.handleChatSocket)
	mux.HandleFunc("/ws/suggestions", s.handleSuggestionSocket)
	mux.HandleFunc("/ws/transcripts", s.handleTranscriptSocket)

	// REST API
	mux.HandleFunc("GET /api/context", s.handleContext)
	mux.HandleFunc("POST /api/context/capture", s.handleForceCapture)
	mux.HandleFunc("POST /api/monitor/start", s.handleMonitorStart)
	mux.HandleFunc("POST /api/monitor/stop", s.handleMonitorStop)
	mux.HandleFunc("GET /api/monitor/status", s.handleMonitorStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/search", s.handleHistorySearch)
	mux.HandleFunc("GET /api/preferences/{key}", s.handleGetPreference)
	mux.HandleFunc("PUT /api/preferences/{key}", s.handleSetPreference)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) limiterJanitor() {
	ticker := time.NewTicker(IPRateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.limiter.purge(IPRateLimitEntryTTL)
		}
	}
}

// --- WebSocket: chat ---

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	baseCtx := r.Context()
	ip := clientIP(r)
	log := trace.Logger(baseCtx)
	log.Info("chat socket connected", "remote", r.RemoteAddr)

	for {
		var req chatRequest
		if err := wsjson.Read(baseCtx, conn, &req); err != nil {
			log.Debug("chat socket closed", "error", err)
			return
		}
		if req.Type != "chat" || req.Content == "" {
			continue
		}

		if !s.limiter.allow(ip) {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, errorFrame{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		// Continue the client's trace when it carries one.
		ctx := baseCtx
		if req.TraceID != "" {
			tc := trace.NewChild(trace.Context{TraceID: req.TraceID})
			ctx = trace.WithContext(ctx, tc)
		} else {
			ctx, _ = trace.EnsureContext(ctx)
		}

		s.streamChat(ctx, conn, req)
	}
}

func (s *Server) streamChat(ctx context.Context, conn *websocket.Conn, req chatRequest) {
	ctx, span := trace.StartSpan(ctx, "server.chat")
	defer span.End()
	span.SetAttr("message_len", len(req.Content))

	log := trace.Logger(ctx)
	includeScreen := true
	if req.IncludeScreen != nil {
		includeScreen = *req.IncludeScreen
	}

	_ = wsjson.Write(ctx, conn, startFrame{Type: "start", Role: "assistant"})

	_, err := s.backend.Chat(ctx, req.SessionID, req.Content, includeScreen, func(chunk string) {
		_ = wsjson.Write(ctx, conn, chunkFrame{Type: "chunk", Content: chunk})
	})
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Error("chat error", "error", err)
		_ = wsjson.Write(ctx, conn, errorFrame{Type: "error", Message: err.Error()})
	}

	_ = wsjson.Write(ctx, conn, doneFrame{Type: "done"})
}

// --- WebSocket: broadcast sockets ---

func (s *Server) handleSuggestionSocket(w http.ResponseWriter, r *http.Request) {
	s.serveBroadcastSocket(w, r, s.suggestionConns, "suggestion")
}

func (s *Server) handleTranscriptSocket(w http.ResponseWriter, r *http.Request) {
	s.serveBroadcastSocket(w, r, s.transcriptConns, "transcript")
}

// serveBroadcastSocket parks a write-only connection in the given set
// until the client goes away.
func (s *Server) serveBroadcastSocket(w http.ResponseWriter, r *http.Request, conns map[*websocket.Conn]struct{}, kind string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}

	s.mu.Lock()
	conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(conns, conn)
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	log := trace.Logger(r.Context())
	log.Info(kind+" socket connected", "remote", r.RemoteAddr)

	// Reads are discarded; the returned context ends with the client.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
}

func (s *Server) broadcastSuggestions() {
	for sg := range s.backend.Suggestions() {
		s.fanOut(s.suggestionConns, suggestionFrame{
			Type:      "suggestion",
			Text:      sg.Text,
			Timestamp: sg.Timestamp,
		})
	}
}

func (s *Server) broadcastTranscripts() {
	for tr := range s.backend.Transcripts() {
		s.fanOut(s.transcriptConns, transcriptFrame{
			Type:      "transcript",
			Text:      tr.Text,
			Duration:  tr.Duration,
			Timestamp: tr.Timestamp,
		})
	}
}

func (s *Server) fanOut(conns map[*websocket.Conn]struct{}, msg any) {
	s.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(conns))
	for c := range conns {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), BroadcastWriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(c)
	}
}

// --- REST ---

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	sc := s.backend.CurrentContext()
	if sc == nil {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "no screen context captured yet"))
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleForceCapture(w http.ResponseWriter, r *http.Request) {
	sc, err := s.backend.ForceCapture(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	s.backend.StartMonitor()
	writeJSON(w, http.StatusOK, s.backend.MonitorStatus())
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	s.backend.StopMonitor()
	writeJSON(w, http.StatusOK, s.backend.MonitorStatus())
}

func (s *Server) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.MonitorStatus())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	rows, err := s.backend.History(limit, r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": rows,
		"count":         len(rows),
	})
}

func (s *Server) handleHistorySearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "missing query parameter q"))
		return
	}
	rows, err := s.backend.SearchHistory(q, queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": rows,
		"count":   len(rows),
	})
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := s.backend.Preference(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := s.backend.SetPreference(key, body.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": body.Value})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	code := apperrors.CodeInternal

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		message = appErr.Message
		code = appErr.Code
	}

	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code.String(),
	})
}
