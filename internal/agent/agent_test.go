package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dedeep007/SAGE/internal/llm"
	"github.com/Dedeep007/SAGE/internal/monitor"
)

type mockModel struct {
	mu            sync.Mutex
	completeResp  string
	completeErr   error
	chunks        []string
	streamErr     error
	lastMsgs      []llm.Message
	completeCalls int
}

func (m *mockModel) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMsgs = msgs
	m.completeCalls++
	return m.completeResp, m.completeErr
}

func (m *mockModel) StreamChat(_ context.Context, msgs []llm.Message, onChunk func(string)) error {
	m.mu.Lock()
	m.lastMsgs = msgs
	m.mu.Unlock()
	if m.streamErr != nil {
		return m.streamErr
	}
	for _, c := range m.chunks {
		onChunk(c)
	}
	return nil
}

func screenText(text string) monitor.ScreenContext {
	return monitor.ScreenContext{Text: text, Timestamp: time.Now(), Confidence: 0.9}
}

func TestProcessMessageStreams(t *testing.T) {
	model := &mockModel{chunks: []string{"Hel", "lo ", "there"}}
	a := New(model, Config{Model: "test-model"})

	var streamed []string
	reply, err := a.ProcessMessage(context.Background(), "hi", false, func(c string) {
		streamed = append(streamed, c)
	})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if reply != "Hello there" {
		t.Errorf("reply = %q, want %q", reply, "Hello there")
	}
	if len(streamed) != 3 {
		t.Errorf("streamed %d chunks, want 3", len(streamed))
	}

	hist := a.History()
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].Role != llm.RoleUser || hist[0].Content != "hi" {
		t.Errorf("history[0] = %+v, want user %q", hist[0], "hi")
	}
	if hist[1].Role != llm.RoleAssistant || hist[1].Content != "Hello there" {
		t.Errorf("history[1] = %+v, want assistant reply", hist[1])
	}

	if model.lastMsgs[0].Role != llm.RoleSystem {
		t.Fatal("first wire message should be the system prompt")
	}
	if !strings.HasPrefix(model.lastMsgs[0].Content, "You are SAGE") {
		t.Error("system prompt should carry the persona")
	}
	if strings.Contains(model.lastMsgs[0].Content, "Current screen context") {
		t.Error("screen context should not be injected when absent")
	}
}

func TestProcessMessageInjectsScreenContext(t *testing.T) {
	model := &mockModel{chunks: []string{"ok"}}
	a := New(model, Config{})
	a.UpdateScreenContext(screenText("Editing main.go in vim"))

	if _, err := a.ProcessMessage(context.Background(), "what am I doing", true, func(string) {}); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	system := model.lastMsgs[0].Content
	if !strings.Contains(system, "Current screen context:\nEditing main.go in vim") {
		t.Errorf("system prompt missing screen context, got %q", system)
	}
	if !strings.HasPrefix(system, "You are SAGE") {
		t.Error("persona should precede the screen context")
	}
}

func TestProcessMessageExcludesScreenContextOnRequest(t *testing.T) {
	model := &mockModel{chunks: []string{"ok"}}
	a := New(model, Config{})
	a.UpdateScreenContext(screenText("secret dashboard"))

	if _, err := a.ProcessMessage(context.Background(), "hi", false, func(string) {}); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if strings.Contains(model.lastMsgs[0].Content, "secret dashboard") {
		t.Error("screen context injected despite includeScreen=false")
	}
}

func TestProcessMessageTruncatesScreenContext(t *testing.T) {
	model := &mockModel{chunks: []string{"ok"}}
	a := New(model, Config{})
	a.UpdateScreenContext(screenText(strings.Repeat("7", 3*MaxScreenContextChars)))

	if _, err := a.ProcessMessage(context.Background(), "hi", true, func(string) {}); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if got := strings.Count(model.lastMsgs[0].Content, "7"); got != MaxScreenContextChars {
		t.Errorf("injected %d context chars, want %d", got, MaxScreenContextChars)
	}
}

func TestProcessMessageSkipsBlankScreenContext(t *testing.T) {
	model := &mockModel{chunks: []string{"ok"}}
	a := New(model, Config{})
	a.UpdateScreenContext(screenText("   \n\t "))

	if _, err := a.ProcessMessage(context.Background(), "hi", true, func(string) {}); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if strings.Contains(model.lastMsgs[0].Content, "Current screen context") {
		t.Error("blank screen context should not be injected")
	}
}

func TestProcessMessageErrorReply(t *testing.T) {
	model := &mockModel{streamErr: errors.New("api down")}
	a := New(model, Config{})

	var streamed []string
	reply, err := a.ProcessMessage(context.Background(), "hi", false, func(c string) {
		streamed = append(streamed, c)
	})
	if err == nil {
		t.Fatal("ProcessMessage() should surface the model error")
	}
	if reply != ErrorReply {
		t.Errorf("reply = %q, want the apology", reply)
	}
	if len(streamed) != 1 || streamed[0] != ErrorReply {
		t.Errorf("streamed = %v, want the apology as the only chunk", streamed)
	}

	hist := a.History()
	if len(hist) != 2 || hist[1].Content != ErrorReply {
		t.Errorf("apology should be recorded in history, got %+v", hist)
	}
}

func TestHistoryTrimsAtDoubleWindow(t *testing.T) {
	a := New(&mockModel{}, Config{MaxHistory: 3})

	for i := 0; i < 7; i++ {
		a.addHistory(llm.RoleUser, string(rune('a'+i)))
	}

	hist := a.History()
	if len(hist) != 3 {
		t.Fatalf("history length = %d, want 3 after trim", len(hist))
	}
	for i, want := range []string{"e", "f", "g"} {
		if hist[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, hist[i].Content, want)
		}
	}
}

func TestPrepareMessagesWindowsHistory(t *testing.T) {
	a := New(&mockModel{}, Config{MaxHistory: 2})
	for i := 0; i < 4; i++ {
		a.addHistory(llm.RoleUser, string(rune('a'+i)))
	}

	msgs := a.prepareMessages(false)
	if len(msgs) != 3 {
		t.Fatalf("message count = %d, want system + 2 history", len(msgs))
	}
	if msgs[1].Content != "c" || msgs[2].Content != "d" {
		t.Errorf("window = %q,%q, want c,d", msgs[1].Content, msgs[2].Content)
	}
}

func TestGenerateSuggestion(t *testing.T) {
	model := &mockModel{completeResp: "  Consider committing your changes before refactoring.  "}
	a := New(model, Config{})
	a.UpdateScreenContext(screenText("git status shows 14 modified files"))

	got, err := a.GenerateSuggestion(context.Background())
	if err != nil {
		t.Fatalf("GenerateSuggestion() error = %v", err)
	}
	if got != "Consider committing your changes before refactoring." {
		t.Errorf("suggestion = %q", got)
	}

	if model.lastMsgs[0].Content != SuggestionSystemPrompt {
		t.Error("suggestion call should use its own system prompt")
	}
	if !strings.Contains(model.lastMsgs[1].Content, "Screen content: git status shows 14 modified files") {
		t.Errorf("prompt missing screen content, got %q", model.lastMsgs[1].Content)
	}
}

func TestGenerateSuggestionWithoutContext(t *testing.T) {
	model := &mockModel{completeResp: "anything"}
	a := New(model, Config{})

	got, err := a.GenerateSuggestion(context.Background())
	if err != nil || got != "" {
		t.Errorf("GenerateSuggestion() = %q, %v, want empty and nil", got, err)
	}
	if model.completeCalls != 0 {
		t.Error("no model call expected without screen context")
	}
}

func TestGenerateSuggestionSuppressed(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"sentinel", "NO_SUGGESTION"},
		{"padded sentinel", "  NO_SUGGESTION  "},
		{"too short", "Save file."},
		{"empty", "   "},
	}
	for _, tt := range tests {
		model := &mockModel{completeResp: tt.resp}
		a := New(model, Config{})
		a.UpdateScreenContext(screenText("some screen text"))

		got, err := a.GenerateSuggestion(context.Background())
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if got != "" {
			t.Errorf("%s: suggestion = %q, want suppressed", tt.name, got)
		}
	}
}

func TestGenerateSuggestionModelError(t *testing.T) {
	model := &mockModel{completeErr: errors.New("api down")}
	a := New(model, Config{})
	a.UpdateScreenContext(screenText("some screen text"))

	if got, err := a.GenerateSuggestion(context.Background()); err == nil || got != "" {
		t.Errorf("GenerateSuggestion() = %q, %v, want empty and error", got, err)
	}
}

func TestStats(t *testing.T) {
	a := New(&mockModel{chunks: []string{"ok"}}, Config{Model: "test-model"})

	s := a.Stats()
	if s.ConversationLength != 0 || s.HasScreenContext || s.ScreenContextAge != nil {
		t.Errorf("fresh stats = %+v", s)
	}
	if s.Model != "test-model" {
		t.Errorf("stats model = %q", s.Model)
	}

	a.UpdateScreenContext(screenText("hello"))
	if _, err := a.ProcessMessage(context.Background(), "hi", false, func(string) {}); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	s = a.Stats()
	if s.ConversationLength != 2 {
		t.Errorf("conversation length = %d, want 2", s.ConversationLength)
	}
	if !s.HasScreenContext || s.ScreenContextAge == nil {
		t.Error("screen context should be reflected in stats")
	}
	if *s.ScreenContextAge < 0 {
		t.Errorf("context age = %v, want >= 0", *s.ScreenContextAge)
	}
}

func TestClearHistory(t *testing.T) {
	a := New(&mockModel{}, Config{})
	a.addHistory(llm.RoleUser, "hi")
	a.ClearHistory()
	if len(a.History()) != 0 {
		t.Error("history should be empty after ClearHistory")
	}
}
