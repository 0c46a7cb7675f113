// Package agent holds the conversation logic: persona, screen context
// injection, history windowing, streaming replies and proactive suggestions.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Dedeep007/SAGE/internal/llm"
	"github.com/Dedeep007/SAGE/internal/monitor"
	"github.com/Dedeep007/SAGE/internal/trace"
)

// Model is the slice of the LLM client the agent needs.
type Model interface {
	Complete(ctx context.Context, msgs []llm.Message) (string, error)
	StreamChat(ctx context.Context, msgs []llm.Message, onChunk func(string)) error
}

// HistoryEntry is one stored conversation turn.
type HistoryEntry struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats reports agent state for the stats endpoint.
type Stats struct {
	ConversationLength int      `json:"conversation_length"`
	HasScreenContext   bool     `json:"has_screen_context"`
	ScreenContextAge   *float64 `json:"screen_context_age,omitempty"`
	Model              string   `json:"model"`
}

// Config holds agent settings.
type Config struct {
	Model      string // reported in stats
	MaxHistory int
}

// Agent binds the model, the conversation history and the latest screen context.
type Agent struct {
	model Model
	cfg   Config

	mu      sync.RWMutex
	history []HistoryEntry
	screen  *monitor.ScreenContext
}

// New creates an agent.
func New(model Model, cfg Config) *Agent {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	return &Agent{model: model, cfg: cfg}
}

// UpdateScreenContext binds the latest screen context. Signature matches
// the monitor's subscriber callback.
func (a *Agent) UpdateScreenContext(sc monitor.ScreenContext) {
	a.mu.Lock()
	a.screen = &sc
	a.mu.Unlock()
	slog.Debug("agent screen context updated", "chars", len(sc.Text))
}

// ScreenContext returns the currently bound screen context, if any.
func (a *Agent) ScreenContext() *monitor.ScreenContext {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.screen
}

// ProcessMessage records the user message, streams the reply through
// onChunk and returns the full reply. When the model fails, a fixed
// apology is delivered and recorded instead, and the error is returned
// for the caller to log.
func (a *Agent) ProcessMessage(ctx context.Context, userMessage string, includeScreen bool, onChunk func(string)) (string, error) {
	ctx, span := trace.StartSpan(ctx, "agent.process_message")
	defer span.End()

	a.addHistory(llm.RoleUser, userMessage)
	msgs := a.prepareMessages(includeScreen)

	var b strings.Builder
	err := a.model.StreamChat(ctx, msgs, func(chunk string) {
		b.WriteString(chunk)
		onChunk(chunk)
	})
	if err != nil {
		slog.Error("chat stream failed", "error", err)
		onChunk(ErrorReply)
		a.addHistory(llm.RoleAssistant, ErrorReply)
		return ErrorReply, err
	}

	reply := b.String()
	if strings.TrimSpace(reply) != "" {
		a.addHistory(llm.RoleAssistant, reply)
	}
	return reply, nil
}

// GenerateSuggestion asks the model for one proactive suggestion based on
// the bound screen context. Returns "" when there is nothing to suggest.
func (a *Agent) GenerateSuggestion(ctx context.Context) (string, error) {
	a.mu.RLock()
	screen := a.screen
	a.mu.RUnlock()

	if screen == nil || strings.TrimSpace(screen.Text) == "" {
		return "", nil
	}

	ctx, span := trace.StartSpan(ctx, "agent.generate_suggestion")
	defer span.End()

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: SuggestionSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(SuggestionPrompt, truncate(screen.Text, MaxSuggestionContextChars))},
	}

	out, err := a.model.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}

	suggestion := strings.TrimSpace(out)
	if suggestion == "" || suggestion == NoSuggestion || utf8.RuneCountInString(suggestion) <= MinSuggestionChars {
		return "", nil
	}
	return suggestion, nil
}

// History returns a copy of the stored conversation.
func (a *Agent) History() []HistoryEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]HistoryEntry, len(a.history))
	copy(out, a.history)
	return out
}

// ClearHistory drops the stored conversation.
func (a *Agent) ClearHistory() {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
	slog.Info("conversation history cleared")
}

// Stats returns the current agent statistics.
func (a *Agent) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Stats{
		ConversationLength: len(a.history),
		HasScreenContext:   a.screen != nil,
		Model:              a.cfg.Model,
	}
	if a.screen != nil {
		age := time.Since(a.screen.Timestamp).Seconds()
		s.ScreenContextAge = &age
	}
	return s
}

// prepareMessages assembles the system prompt plus the recent history window.
func (a *Agent) prepareMessages(includeScreen bool) []llm.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()

	system := Persona
	if includeScreen && a.screen != nil && strings.TrimSpace(a.screen.Text) != "" {
		system += "\n\n" + fmt.Sprintf(ScreenContextPrompt, truncate(a.screen.Text, MaxScreenContextChars))
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	recent := a.history
	if len(recent) > a.cfg.MaxHistory {
		recent = recent[len(recent)-a.cfg.MaxHistory:]
	}
	for _, h := range recent {
		switch h.Role {
		case llm.RoleUser, llm.RoleAssistant:
			msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
		}
	}
	return msgs
}

// addHistory appends a turn, trimming to the window once it doubles.
func (a *Agent) addHistory(role llm.Role, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, HistoryEntry{Role: role, Content: content, Timestamp: time.Now()})
	if len(a.history) > a.cfg.MaxHistory*2 {
		a.history = a.history[len(a.history)-a.cfg.MaxHistory:]
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
