// Package store persists conversations, screen captures and preferences in SQLite
package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

// Conversation is one stored user/assistant exchange.
type Conversation struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	SessionID         string    `gorm:"index" json:"session_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	ScreenContext     string    `json:"screen_context"`
	Metadata          string    `json:"metadata"` // JSON blob
}

// ScreenCapture is one persisted screen context snapshot.
type ScreenCapture struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	ImageHash  string    `json:"image_hash"`
}

// Preference is one user preference key/value pair.
type Preference struct {
	Key       string    `gorm:"primarykey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats reports row counts and database size.
type Stats struct {
	Conversations int64     `json:"conversation_count"`
	Captures      int64     `json:"screen_context_count"`
	SizeBytes     int64     `json:"database_size_bytes"`
	LastCleanup   time.Time `json:"last_cleanup"`
}

// Config holds storage settings.
type Config struct {
	Path       string
	MaxHistory int
}

// Store wraps the SQLite database.
type Store struct {
	db  *gorm.DB
	cfg Config

	mu          sync.Mutex
	lastCleanup time.Time
}

// Open opens (creating if needed) the database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStorageFailed, "create data directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageFailed, "open database")
	}
	if err := db.AutoMigrate(&Conversation{}, &ScreenCapture{}, &Preference{}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageFailed, "migrate schema")
	}

	slog.Info("database ready", "path", cfg.Path)
	return &Store{db: db, cfg: cfg, lastCleanup: time.Now()}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveConversation stores one exchange and returns its ID. A retention
// sweep runs afterwards when one is due.
func (s *Store) SaveConversation(c Conversation) (uint, error) {
	if c.Metadata == "" {
		c.Metadata = "{}"
	}
	if result := s.db.Create(&c); result.Error != nil {
		return 0, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "save conversation")
	}
	slog.Debug("conversation saved", "id", c.ID, "session", c.SessionID)

	s.cleanupIfNeeded()
	return c.ID, nil
}

// SaveCapture stores one screen context snapshot and returns its ID.
func (s *Store) SaveCapture(sc ScreenCapture) (uint, error) {
	if result := s.db.Create(&sc); result.Error != nil {
		return 0, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "save screen capture")
	}
	return sc.ID, nil
}

// RecentConversations returns the newest conversations, optionally
// filtered by session.
func (s *Store) RecentConversations(limit int, sessionID string) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultConversationLimit
	}

	db := s.db
	if sessionID != "" {
		db = db.Where("session_id = ?", sessionID)
	}

	var rows []Conversation
	if result := db.Order("created_at desc").Limit(limit).Find(&rows); result.Error != nil {
		return nil, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "load conversations")
	}
	return rows, nil
}

// RecentCaptures returns the newest screen captures.
func (s *Store) RecentCaptures(limit int) ([]ScreenCapture, error) {
	if limit <= 0 {
		limit = DefaultCaptureLimit
	}

	var rows []ScreenCapture
	if result := s.db.Order("created_at desc").Limit(limit).Find(&rows); result.Error != nil {
		return nil, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "load screen captures")
	}
	return rows, nil
}

// SearchConversations returns conversations whose user or assistant text
// contains the query, newest first.
func (s *Store) SearchConversations(query string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	like := "%" + query + "%"

	var rows []Conversation
	result := s.db.Where("user_message LIKE ? OR assistant_response LIKE ?", like, like).
		Order("created_at desc").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "search conversations")
	}
	return rows, nil
}

// SetPreference upserts one preference.
func (s *Store) SetPreference(key, value string) error {
	pref := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "set preference")
	}
	return nil
}

// GetPreference returns the value for key, or CodeNotFound when unset.
func (s *Store) GetPreference(key string) (string, error) {
	var pref Preference
	result := s.db.First(&pref, "key = ?", key)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", apperrors.Newf(apperrors.CodeNotFound, "preference %q not set", key)
	}
	if result.Error != nil {
		return "", apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "get preference")
	}
	return pref.Value, nil
}

// Stats returns row counts, file size and the last cleanup time.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if result := s.db.Model(&Conversation{}).Count(&st.Conversations); result.Error != nil {
		return st, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "count conversations")
	}
	if result := s.db.Model(&ScreenCapture{}).Count(&st.Captures); result.Error != nil {
		return st, apperrors.Wrap(result.Error, apperrors.CodeStorageFailed, "count screen captures")
	}
	if info, err := os.Stat(s.cfg.Path); err == nil {
		st.SizeBytes = info.Size()
	}

	s.mu.Lock()
	st.LastCleanup = s.lastCleanup
	s.mu.Unlock()
	return st, nil
}

// cleanupIfNeeded runs a retention sweep at most once per interval.
func (s *Store) cleanupIfNeeded() {
	s.mu.Lock()
	if time.Since(s.lastCleanup) < CleanupInterval {
		s.mu.Unlock()
		return
	}
	s.lastCleanup = time.Now()
	s.mu.Unlock()

	s.cleanup()
}

// cleanup trims both tables to their retention budgets. Captures keep a
// double budget for later analysis.
func (s *Store) cleanup() {
	result := s.db.Exec(
		`DELETE FROM conversations WHERE id NOT IN (SELECT id FROM conversations ORDER BY created_at DESC LIMIT ?)`,
		s.cfg.MaxHistory,
	)
	if result.Error != nil {
		slog.Error("conversation cleanup failed", "error", result.Error)
	}

	result = s.db.Exec(
		`DELETE FROM screen_captures WHERE id NOT IN (SELECT id FROM screen_captures ORDER BY created_at DESC LIMIT ?)`,
		s.cfg.MaxHistory*2,
	)
	if result.Error != nil {
		slog.Error("screen capture cleanup failed", "error", result.Error)
	}

	slog.Debug("database cleanup completed")
}
