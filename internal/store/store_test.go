package store

import (
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

func openTestStore(t *testing.T, maxHistory int) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:       filepath.Join(t.TempDir(), "data", "sage.db"),
		MaxHistory: maxHistory,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backdated builds a conversation with an explicit creation time so
// ordering is deterministic.
func backdated(age time.Duration, user, assistant string) Conversation {
	return Conversation{
		CreatedAt:         time.Now().Add(-age),
		UserMessage:       user,
		AssistantResponse: assistant,
	}
}

func TestSaveAndRecentConversations(t *testing.T) {
	s := openTestStore(t, 0)

	for i, c := range []Conversation{
		backdated(3*time.Minute, "oldest", "r1"),
		backdated(2*time.Minute, "middle", "r2"),
		backdated(1*time.Minute, "newest", "r3"),
	} {
		id, err := s.SaveConversation(c)
		if err != nil {
			t.Fatalf("SaveConversation(%d) error = %v", i, err)
		}
		if id == 0 {
			t.Errorf("SaveConversation(%d) returned zero ID", i)
		}
	}

	rows, err := s.RecentConversations(2, "")
	if err != nil {
		t.Fatalf("RecentConversations() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(rows))
	}
	if rows[0].UserMessage != "newest" || rows[1].UserMessage != "middle" {
		t.Errorf("order = %q,%q, want newest,middle", rows[0].UserMessage, rows[1].UserMessage)
	}
	if rows[0].Metadata != "{}" {
		t.Errorf("metadata = %q, want default {}", rows[0].Metadata)
	}
}

func TestRecentConversationsSessionFilter(t *testing.T) {
	s := openTestStore(t, 0)

	for _, c := range []Conversation{
		{SessionID: "a", UserMessage: "in a"},
		{SessionID: "b", UserMessage: "in b"},
		{SessionID: "a", UserMessage: "also in a"},
	} {
		if _, err := s.SaveConversation(c); err != nil {
			t.Fatalf("SaveConversation() error = %v", err)
		}
	}

	rows, err := s.RecentConversations(10, "a")
	if err != nil {
		t.Fatalf("RecentConversations() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("session a rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.SessionID != "a" {
			t.Errorf("row session = %q, want a", r.SessionID)
		}
	}
}

func TestSearchConversations(t *testing.T) {
	s := openTestStore(t, 0)

	for _, c := range []Conversation{
		{UserMessage: "how do I write a goroutine", AssistantResponse: "use the go keyword"},
		{UserMessage: "unrelated", AssistantResponse: "channels connect goroutines"},
		{UserMessage: "weather", AssistantResponse: "sunny"},
	} {
		if _, err := s.SaveConversation(c); err != nil {
			t.Fatalf("SaveConversation() error = %v", err)
		}
	}

	rows, err := s.SearchConversations("goroutine", 10)
	if err != nil {
		t.Fatalf("SearchConversations() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("matches = %d, want 2 (user and assistant text both searched)", len(rows))
	}

	rows, err = s.SearchConversations("nonexistent", 10)
	if err != nil {
		t.Fatalf("SearchConversations() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("matches = %d, want 0", len(rows))
	}
}

func TestCaptures(t *testing.T) {
	s := openTestStore(t, 0)

	for i, sc := range []ScreenCapture{
		{CreatedAt: time.Now().Add(-2 * time.Minute), Content: "older", Confidence: 0.8, ImageHash: "p:aaaa"},
		{CreatedAt: time.Now().Add(-1 * time.Minute), Content: "newer", Confidence: 0.9, ImageHash: "p:bbbb"},
	} {
		if _, err := s.SaveCapture(sc); err != nil {
			t.Fatalf("SaveCapture(%d) error = %v", i, err)
		}
	}

	rows, err := s.RecentCaptures(1)
	if err != nil {
		t.Fatalf("RecentCaptures() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Content != "newer" {
		t.Errorf("rows = %+v, want single newest capture", rows)
	}
	if rows[0].Confidence != 0.9 || rows[0].ImageHash != "p:bbbb" {
		t.Errorf("capture fields not round-tripped: %+v", rows[0])
	}
}

func TestPreferences(t *testing.T) {
	s := openTestStore(t, 0)

	if _, err := s.GetPreference("theme"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing preference code = %v, want CodeNotFound", apperrors.GetCode(err))
	}

	if err := s.SetPreference("theme", "dark"); err != nil {
		t.Fatalf("SetPreference() error = %v", err)
	}
	if v, err := s.GetPreference("theme"); err != nil || v != "dark" {
		t.Errorf("GetPreference() = %q, %v, want dark", v, err)
	}

	// Upsert replaces rather than duplicates.
	if err := s.SetPreference("theme", "light"); err != nil {
		t.Fatalf("SetPreference() upsert error = %v", err)
	}
	if v, _ := s.GetPreference("theme"); v != "light" {
		t.Errorf("GetPreference() after upsert = %q, want light", v)
	}

	var n int64
	if result := s.db.Model(&Preference{}).Count(&n); result.Error != nil {
		t.Fatalf("count preferences: %v", result.Error)
	}
	if n != 1 {
		t.Errorf("preference rows = %d, want 1", n)
	}
}

func TestCleanupTrims(t *testing.T) {
	s := openTestStore(t, 3)

	for i := 0; i < 10; i++ {
		c := backdated(time.Duration(10-i)*time.Minute, "msg", "resp")
		if _, err := s.SaveConversation(c); err != nil {
			t.Fatalf("SaveConversation() error = %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		sc := ScreenCapture{CreatedAt: time.Now().Add(-time.Duration(10-i) * time.Minute), Content: "cap"}
		if _, err := s.SaveCapture(sc); err != nil {
			t.Fatalf("SaveCapture() error = %v", err)
		}
	}

	s.cleanup()

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Conversations != 3 {
		t.Errorf("conversations after cleanup = %d, want 3", st.Conversations)
	}
	if st.Captures != 6 {
		t.Errorf("captures after cleanup = %d, want 6 (double budget)", st.Captures)
	}

	// The newest rows survive.
	rows, _ := s.RecentConversations(10, "")
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
}

func TestSaveTriggersDueCleanup(t *testing.T) {
	s := openTestStore(t, 2)

	for i := 0; i < 5; i++ {
		if _, err := s.SaveConversation(backdated(time.Duration(5-i)*time.Minute, "msg", "resp")); err != nil {
			t.Fatalf("SaveConversation() error = %v", err)
		}
	}

	// Force the sweep to be due, then save once more.
	s.mu.Lock()
	s.lastCleanup = time.Now().Add(-2 * CleanupInterval)
	s.mu.Unlock()

	if _, err := s.SaveConversation(Conversation{UserMessage: "trigger", AssistantResponse: "r"}); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Conversations != 2 {
		t.Errorf("conversations = %d, want 2 after due sweep", st.Conversations)
	}
	if time.Since(st.LastCleanup) > time.Minute {
		t.Error("lastCleanup should be refreshed by the sweep")
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t, 0)

	if _, err := s.SaveConversation(Conversation{UserMessage: "hi", AssistantResponse: "hello"}); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Conversations != 1 || st.Captures != 0 {
		t.Errorf("counts = %d,%d, want 1,0", st.Conversations, st.Captures)
	}
	if st.SizeBytes == 0 {
		t.Error("database file size should be non-zero")
	}
}
