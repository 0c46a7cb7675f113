// Package voice captures microphone audio, segments utterances by
// silence, and transcribes them through the model API.
package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

// Transcriber converts a WAV recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

// Result is one recognized utterance.
type Result struct {
	Text      string    `json:"text"`
	Duration  float64   `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds capture settings.
type Config struct {
	SampleRate      int
	ExcludedDevices []string
}

// Processor runs the capture loop and emits transcripts.
type Processor struct {
	transcriber Transcriber
	cfg         Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	out chan Result
}

// New creates a voice processor. Capture does not begin until Start.
func New(transcriber Transcriber, cfg Config) *Processor {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	return &Processor{
		transcriber: transcriber,
		cfg:         cfg,
		out:         make(chan Result, ResultBuffer),
	}
}

// Results delivers transcribed utterances. Results are dropped, not
// queued, when the consumer falls behind.
func (p *Processor) Results() <-chan Result {
	return p.out
}

// Running reports whether the capture loop is active.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start initializes the audio subsystem, opens the input device, and
// launches the capture loop.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "initialize audio subsystem")
	}

	dev, err := pickInputDevice(p.cfg.ExcludedDevices)
	if err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "no usable input device")
	}

	buf := make([]float32, FrameSize)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(p.cfg.SampleRate),
		FramesPerBuffer: FrameSize,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "open audio stream")
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "start audio stream")
	}

	p.mu.Lock()
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	slog.Info("voice capture started",
		"device", dev.Name,
		"sample_rate", p.cfg.SampleRate)

	go p.loop(ctx, stream, buf, stopCh, done)
	return nil
}

// Stop ends the capture loop and releases the audio subsystem. Waits
// up to StopTimeout for the loop to drain.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-done:
	case <-time.After(StopTimeout):
		slog.Warn("voice capture loop did not stop in time")
	}

	_ = portaudio.Terminate()
	slog.Info("voice capture stopped")
}

func (p *Processor) loop(ctx context.Context, stream *portaudio.Stream, buf []float32, stopCh, done chan struct{}) {
	defer close(done)
	defer func() {
		_ = stream.Stop()
		_ = stream.Close()
	}()

	ep := newEndpointer(p.cfg.SampleRate)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			slog.Warn("audio read failed", "error", err)
			return
		}
		if utterance := ep.feed(buf); utterance != nil {
			p.transcribe(ctx, utterance)
		}
	}
}

// transcribe encodes the utterance and hands it to the model API in
// the background so capture never blocks on the network.
func (p *Processor) transcribe(ctx context.Context, samples []float32) {
	duration := float64(len(samples)) / float64(p.cfg.SampleRate)
	data, err := encodeWAV(samples, p.cfg.SampleRate)
	if err != nil {
		slog.Error("wav encoding failed", "error", err)
		return
	}

	go func() {
		tctx, cancel := context.WithTimeout(ctx, TranscribeTimeout)
		defer cancel()

		text, err := p.transcriber.Transcribe(tctx, data)
		if err != nil {
			slog.Error("transcription failed", "error", err)
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}

		slog.Debug("utterance transcribed", "chars", len(text), "seconds", duration)
		select {
		case p.out <- Result{Text: text, Duration: duration, Timestamp: time.Now()}:
		default:
			slog.Debug("transcript dropped, channel full")
		}
	}()
}
