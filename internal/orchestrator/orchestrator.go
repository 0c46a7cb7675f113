// Package orchestrator wires the screen monitor, agent, voice, and
// storage components and owns their lifecycle.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Dedeep007/SAGE/internal/agent"
	"github.com/Dedeep007/SAGE/internal/config"
	"github.com/Dedeep007/SAGE/internal/monitor"
	"github.com/Dedeep007/SAGE/internal/store"
	"github.com/Dedeep007/SAGE/internal/suggest"
	"github.com/Dedeep007/SAGE/internal/trace"
	"github.com/Dedeep007/SAGE/internal/voice"
)

// MonitorStatus reports the screen monitor state.
type MonitorStatus struct {
	Running         bool    `json:"running"`
	Available       bool    `json:"available"`
	IntervalSeconds float64 `json:"interval_seconds"`
}

// SystemStats aggregates component statistics for the stats endpoint.
type SystemStats struct {
	Agent         agent.Stats   `json:"agent"`
	Database      store.Stats   `json:"database"`
	Monitor       MonitorStatus `json:"monitor"`
	VoiceActive   bool          `json:"voice_active"`
	UptimeSeconds float64       `json:"uptime_seconds"`
}

// Deps are the constructed components the orchestrator coordinates.
// main builds them and passes references; nothing here is a singleton.
type Deps struct {
	Config  *config.Config
	Store   *store.Store
	Agent   *agent.Agent
	Monitor *monitor.Monitor
	Binder  *suggest.Binder
	Voice   *voice.Processor // nil when voice input is disabled
}

// Orchestrator coordinates all services.
type Orchestrator struct {
	cfg     *config.Config
	store   *store.Store
	agent   *agent.Agent
	monitor *monitor.Monitor
	binder  *suggest.Binder
	voice   *voice.Processor

	suggestions chan suggest.Suggestion
	transcripts chan voice.Result

	mu      sync.Mutex
	started time.Time
	runCtx  context.Context
	running bool
	stopCh  chan struct{}
}

// New creates the orchestrator and subscribes the binder and the
// persistence sink to the monitor.
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:         deps.Config,
		store:       deps.Store,
		agent:       deps.Agent,
		monitor:     deps.Monitor,
		binder:      deps.Binder,
		voice:       deps.Voice,
		suggestions: make(chan suggest.Suggestion, SuggestionBuffer),
		transcripts: make(chan voice.Result, TranscriptBuffer),
	}

	o.monitor.Subscribe(o.binder.OnContext)
	o.monitor.Subscribe(o.persistContext)

	return o
}

// Start begins monitoring and, when configured, voice capture. The
// context bounds all background work started here.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.started = time.Now()
	o.runCtx = ctx
	o.stopCh = make(chan struct{})
	stopCh := o.stopCh
	o.mu.Unlock()

	o.monitor.Start(ctx)

	if o.voice != nil {
		if err := o.voice.Start(ctx); err != nil {
			slog.Warn("voice capture unavailable", "error", err)
		}
	}

	go o.pumpSuggestions(stopCh)
	go o.pumpTranscripts(stopCh)

	slog.Info("orchestrator started",
		"monitor_available", o.monitor.Available(),
		"voice", o.voice != nil)
	return nil
}

// Stop shuts down components in dependency order: no new suggestions,
// then the capture loops, then storage stays open for the caller to
// close last.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	stopCh := o.stopCh
	o.mu.Unlock()

	o.binder.Stop()
	o.monitor.Stop()
	if o.voice != nil {
		o.voice.Stop()
	}
	close(stopCh)

	slog.Info("orchestrator stopped")
}

// Suggestions delivers proactive suggestions for broadcast. Closed on Stop.
func (o *Orchestrator) Suggestions() <-chan suggest.Suggestion {
	return o.suggestions
}

// Transcripts delivers voice transcriptions for broadcast. Closed on Stop.
func (o *Orchestrator) Transcripts() <-chan voice.Result {
	return o.transcripts
}

// Chat streams an assistant reply and persists the exchange.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, message string, includeScreen bool, onChunk func(string)) (string, error) {
	ctx, span := trace.StartSpan(ctx, "orchestrator.chat")
	defer span.End()
	span.SetAttr("session", sessionID)
	span.SetAttr("message_len", len(message))

	reply, err := o.agent.ProcessMessage(ctx, message, includeScreen, onChunk)
	if err != nil {
		span.SetAttr("error", err.Error())
	}

	// The exchange is recorded either way: on failure the reply is the
	// apology the user actually saw.
	var contextText string
	if sc := o.monitor.Current(); sc != nil && includeScreen {
		contextText = sc.Text
	}
	if _, saveErr := o.store.SaveConversation(store.Conversation{
		SessionID:         sessionID,
		UserMessage:       message,
		AssistantResponse: reply,
		ScreenContext:     contextText,
	}); saveErr != nil {
		trace.Logger(ctx).Error("conversation save failed", "error", saveErr)
	}

	return reply, err
}

// CurrentContext returns the latest accepted screen context, nil if none.
func (o *Orchestrator) CurrentContext() *monitor.ScreenContext {
	return o.monitor.Current()
}

// ForceCapture captures immediately, bypassing change detection, and
// binds the result to the agent like any accepted context.
func (o *Orchestrator) ForceCapture(ctx context.Context) (*monitor.ScreenContext, error) {
	sc, err := o.monitor.ForceCapture(ctx)
	if err != nil {
		return nil, err
	}
	o.binder.OnContext(*sc)
	return sc, nil
}

// StartMonitor starts the screen polling loop, bound to the
// orchestrator's run context rather than any request context.
func (o *Orchestrator) StartMonitor() {
	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	o.monitor.Start(ctx)
}

// StopMonitor stops the screen polling loop.
func (o *Orchestrator) StopMonitor() {
	o.monitor.Stop()
}

// MonitorStatus reports the monitor state.
func (o *Orchestrator) MonitorStatus() MonitorStatus {
	return MonitorStatus{
		Running:         o.monitor.Running(),
		Available:       o.monitor.Available(),
		IntervalSeconds: o.cfg.ScreenCaptureInterval,
	}
}

// History returns recent conversations, newest first.
func (o *Orchestrator) History(limit int, sessionID string) ([]store.Conversation, error) {
	return o.store.RecentConversations(limit, sessionID)
}

// SearchHistory searches stored conversations.
func (o *Orchestrator) SearchHistory(query string, limit int) ([]store.Conversation, error) {
	return o.store.SearchConversations(query, limit)
}

// Preference returns a stored preference value.
func (o *Orchestrator) Preference(key string) (string, error) {
	return o.store.GetPreference(key)
}

// SetPreference stores a preference. The suggestions toggle takes
// effect immediately; other keys apply on restart.
func (o *Orchestrator) SetPreference(key, value string) error {
	if err := o.store.SetPreference(key, value); err != nil {
		return err
	}
	if key == PrefSuggestionsEnabled {
		o.binder.SetEnabled(value == "true" || value == "1")
	}
	return nil
}

// Stats aggregates agent, database, and monitor statistics.
func (o *Orchestrator) Stats() (SystemStats, error) {
	dbStats, err := o.store.Stats()
	if err != nil {
		return SystemStats{}, err
	}

	o.mu.Lock()
	started := o.started
	o.mu.Unlock()

	var uptime float64
	if !started.IsZero() {
		uptime = time.Since(started).Seconds()
	}

	return SystemStats{
		Agent:         o.agent.Stats(),
		Database:      dbStats,
		Monitor:       o.MonitorStatus(),
		VoiceActive:   o.voice != nil && o.voice.Running(),
		UptimeSeconds: uptime,
	}, nil
}

// persistContext is the monitor subscriber that records accepted
// contexts. It runs on the loop goroutine, so it must stay cheap.
func (o *Orchestrator) persistContext(sc monitor.ScreenContext) {
	if _, err := o.store.SaveCapture(store.ScreenCapture{
		Content:    sc.Text,
		Confidence: sc.Confidence,
		ImageHash:  sc.ImageHash,
	}); err != nil {
		slog.Error("screen context save failed", "error", err)
	}
}

func (o *Orchestrator) pumpSuggestions(stopCh chan struct{}) {
	defer close(o.suggestions)
	for {
		select {
		case <-stopCh:
			return
		case s, ok := <-o.binder.Suggestions():
			if !ok {
				return
			}
			select {
			case o.suggestions <- s:
			default:
				slog.Debug("suggestion dropped, channel full")
			}
		}
	}
}

func (o *Orchestrator) pumpTranscripts(stopCh chan struct{}) {
	defer close(o.transcripts)
	if o.voice == nil {
		<-stopCh
		return
	}
	for {
		select {
		case <-stopCh:
			return
		case r, ok := <-o.voice.Results():
			if !ok {
				return
			}
			select {
			case o.transcripts <- r:
			default:
				slog.Debug("transcript dropped, channel full")
			}
		}
	}
}
