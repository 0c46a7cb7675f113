package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
	"github.com/Dedeep007/SAGE/internal/ocr"
	"github.com/Dedeep007/SAGE/internal/screen"
	"github.com/Dedeep007/SAGE/internal/syncx"
)

// Config holds pipeline tuning.
type Config struct {
	Interval            time.Duration
	ConfidenceThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return c
}

type subscriber struct {
	id int
	fn func(ScreenContext)
}

// Monitor polls the screen on a fixed interval, extracts text, and
// notifies subscribers of accepted context changes. One goroutine owns
// the loop; the current context is read through a guarded single slot.
type Monitor struct {
	capturer screen.Capturer
	engine   ocr.Engine
	cfg      Config

	current *syncx.Guard[*ScreenContext]

	mu      sync.Mutex
	subs    []subscriber
	nextID  int
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a monitor over the given capturer and OCR engine.
func New(capturer screen.Capturer, engine ocr.Engine, cfg Config) *Monitor {
	return &Monitor{
		capturer: capturer,
		engine:   engine,
		cfg:      cfg.withDefaults(),
		current:  syncx.NewGuard[*ScreenContext](nil),
	}
}

// Subscribe registers a callback invoked synchronously on the loop
// goroutine for each accepted context. Slow callbacks delay the next
// tick. Returns an id for Unsubscribe.
func (m *Monitor) Subscribe(fn func(ScreenContext)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.subs = append(m.subs, subscriber{id: m.nextID, fn: fn})
	return m.nextID
}

// Unsubscribe removes a previously registered callback.
func (m *Monitor) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s.id == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// Current returns the most recent accepted context, nil before the first.
func (m *Monitor) Current() *ScreenContext {
	return m.current.Get()
}

// Available reports whether the OCR backend can run.
func (m *Monitor) Available() bool { return m.engine.Available() }

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start spawns the polling loop. No-op if already running or the OCR
// backend is unavailable.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		slog.Warn("screen monitor already running")
		return
	}
	if !m.engine.Available() {
		slog.Warn("OCR backend not available, screen monitoring disabled")
		return
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(ctx, m.stopCh, m.done)
	slog.Info("screen monitoring started", "interval", m.cfg.Interval)
}

// Stop signals the loop and waits up to StopTimeout for it to exit.
// In-flight capture or OCR work is not interrupted; the monitor returns
// to idle either way.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, done := m.stopCh, m.done
	m.stopCh, m.done = nil, nil
	m.mu.Unlock()

	close(stopCh)
	select {
	case <-done:
	case <-time.After(StopTimeout):
		slog.Warn("screen monitor loop did not stop within timeout")
	}
	slog.Info("screen monitoring stopped")
}

// ForceCapture runs one synchronous capture cycle, bypassing the change
// detector and the store. Low-confidence results are still rejected.
func (m *Monitor) ForceCapture(ctx context.Context) (*ScreenContext, error) {
	if !m.engine.Available() {
		return nil, apperrors.New(apperrors.CodeUnavailable, "OCR backend not available")
	}
	return m.snapshot(ctx)
}

func (m *Monitor) loop(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if !m.tick(ctx) {
				// Brief pause before retrying after a panic
				select {
				case <-ctx.Done():
					return
				case <-stopCh:
					return
				case <-time.After(PanicBackoff):
				}
			}
		}
	}
}

// tick runs one capture cycle. Returns false only if the cycle panicked.
func (m *Monitor) tick(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("screen monitor tick panicked", "panic", r)
			ok = false
		}
	}()
	ok = true

	snap, err := m.snapshot(ctx)
	if err != nil {
		// Transient: skip this tick
		slog.Debug("tick skipped", "reason", err)
		return
	}

	prev := m.current.Get()
	if !Changed(prev, *snap, m.cfg.Interval) {
		return
	}

	m.current.Set(snap)
	m.notify(*snap)
	return
}

// snapshot captures one frame and builds a context from it.
func (m *Monitor) snapshot(ctx context.Context) (*ScreenContext, error) {
	frame, err := m.capturer.Capture(ctx)
	if err != nil {
		return nil, err
	}

	frags, err := m.engine.Extract(ctx, frame)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, apperrors.New(apperrors.CodeExtractionFailed, "no text recognized")
	}

	confidence := scoreFragments(frags)
	if confidence < m.cfg.ConfidenceThreshold {
		return nil, apperrors.Newf(apperrors.CodeLowConfidence,
			"confidence %.2f below threshold %.2f", confidence, m.cfg.ConfidenceThreshold)
	}

	return &ScreenContext{
		Text:       CleanText(joinFragments(frags)),
		Timestamp:  time.Now(),
		Confidence: confidence,
		Region:     m.capturer.Region(),
		ImageHash:  HashImage(frame),
	}, nil
}

// notify fans out to subscribers synchronously over a copy of the list,
// recovering each callback individually so one bad subscriber cannot
// break the tick or starve the others.
func (m *Monitor) notify(sc ScreenContext) {
	m.mu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("context subscriber panicked", "id", s.id, "panic", r)
				}
			}()
			s.fn(sc)
		}()
	}
}
