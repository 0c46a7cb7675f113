// Package suggest turns fresh screen contexts into proactive suggestions
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Dedeep007/SAGE/internal/monitor"
)

// Scheduling constants
const (
	// SettleDelay waits for screen text to stop changing before suggesting
	SettleDelay = 2 * time.Second

	// MinContextChars is the trimmed length a context must exceed to warrant a suggestion
	MinContextChars = 20

	// GenerateTimeout bounds one suggestion call
	GenerateTimeout = 30 * time.Second

	// SuggestionBuffer is the outbound channel capacity
	SuggestionBuffer = 8
)

// Agent is the slice of the conversational agent the binder drives.
type Agent interface {
	UpdateScreenContext(sc monitor.ScreenContext)
	GenerateSuggestion(ctx context.Context) (string, error)
}

// Suggestion is one generated proactive suggestion.
type Suggestion struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Binder feeds screen contexts to the agent and schedules suggestion
// generation when the context looks substantial enough.
type Binder struct {
	agent  Agent
	settle time.Duration

	mu       sync.Mutex
	enabled  bool
	cooldown time.Duration
	lastTime time.Time
	pending  *time.Timer

	out chan Suggestion
}

// New creates a binder.
func New(agent Agent, cooldownSec float64, enabled bool) *Binder {
	return &Binder{
		agent:    agent,
		settle:   SettleDelay,
		enabled:  enabled,
		cooldown: time.Duration(cooldownSec * float64(time.Second)),
		out:      make(chan Suggestion, SuggestionBuffer),
	}
}

// OnContext binds the context to the agent and, when warranted, schedules
// a suggestion after the settle delay. Signature matches the monitor's
// subscriber callback.
func (b *Binder) OnContext(sc monitor.ScreenContext) {
	b.agent.UpdateScreenContext(sc)

	if !b.IsEnabled() {
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(sc.Text)) <= MinContextChars {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Since(b.lastTime) < b.cooldown {
		return
	}

	// A newer context resets the settle timer: suggest off the screen the
	// user actually settled on.
	if b.pending != nil {
		b.pending.Stop()
	}
	b.pending = time.AfterFunc(b.settle, b.fire)
}

// Suggestions returns the channel of generated suggestions.
func (b *Binder) Suggestions() <-chan Suggestion {
	return b.out
}

// SetEnabled enables or disables suggestion generation.
func (b *Binder) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()
	slog.Info("proactive suggestions toggled", "enabled", enabled)
}

// IsEnabled returns the current enabled state.
func (b *Binder) IsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Stop cancels any pending suggestion timer.
func (b *Binder) Stop() {
	b.mu.Lock()
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
	b.mu.Unlock()
}

// fire runs in the settle timer's goroutine.
func (b *Binder) fire() {
	b.mu.Lock()
	b.pending = nil
	enabled := b.enabled
	cooling := time.Since(b.lastTime) < b.cooldown
	b.mu.Unlock()

	if !enabled || cooling {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), GenerateTimeout)
	defer cancel()

	suggestion, err := b.agent.GenerateSuggestion(ctx)
	if err != nil {
		slog.Error("suggestion generation failed", "error", err)
		return
	}
	if suggestion == "" {
		return
	}

	b.mu.Lock()
	b.lastTime = time.Now()
	b.mu.Unlock()

	slog.Info("proactive suggestion generated", "chars", len(suggestion))
	select {
	case b.out <- Suggestion{Text: suggestion, Timestamp: time.Now()}:
	default:
		slog.Debug("suggestion dropped, channel full")
	}
}
