package voice

import (
	"math"
	"testing"
)

func silentFrame() []float32 {
	return make([]float32, FrameSize)
}

func speechFrame() []float32 {
	frame := make([]float32, FrameSize)
	for i := range frame {
		frame[i] = 0.5
	}
	return frame
}

func TestFrameRMS(t *testing.T) {
	tests := []struct {
		name     string
		frame    []float32
		expected float64
	}{
		{"empty", nil, 0},
		{"silence", silentFrame(), 0},
		{"constant half", speechFrame(), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := frameRMS(tt.frame)
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("frameRMS() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEndpointerSilenceOnly(t *testing.T) {
	ep := newEndpointer(DefaultSampleRate)

	for i := 0; i < 100; i++ {
		if got := ep.feed(silentFrame()); got != nil {
			t.Fatalf("feed(silence) = %d samples, want nil", len(got))
		}
	}
	if len(ep.utterance) != 0 {
		t.Errorf("utterance accumulated %d samples during silence", len(ep.utterance))
	}
}

func TestEndpointerSegmentsUtterance(t *testing.T) {
	ep := newEndpointer(DefaultSampleRate)

	speechFrames := 5
	for i := 0; i < speechFrames; i++ {
		if got := ep.feed(speechFrame()); got != nil {
			t.Fatalf("feed(speech) emitted early after %d frames", i+1)
		}
	}

	var utterance []float32
	for i := 0; i < SilenceFrames; i++ {
		utterance = ep.feed(silentFrame())
		if utterance != nil && i < SilenceFrames-1 {
			t.Fatalf("emitted after %d silence frames, want %d", i+1, SilenceFrames)
		}
	}

	want := (speechFrames + SilenceFrames) * FrameSize
	if len(utterance) != want {
		t.Errorf("utterance length = %d, want %d", len(utterance), want)
	}

	// State resets after the flush.
	if ep.speaking || ep.silence != 0 || len(ep.utterance) != 0 {
		t.Errorf("endpointer not reset: speaking=%v silence=%d pending=%d",
			ep.speaking, ep.silence, len(ep.utterance))
	}
	if got := ep.feed(silentFrame()); got != nil {
		t.Errorf("feed(silence) after flush emitted %d samples", len(got))
	}
}

func TestEndpointerBoundsUtteranceLength(t *testing.T) {
	ep := newEndpointer(DefaultSampleRate)
	maxFrames := ep.maxSamples / FrameSize

	var utterance []float32
	for i := 0; i < maxFrames; i++ {
		utterance = ep.feed(speechFrame())
		if utterance != nil && i < maxFrames-1 {
			t.Fatalf("emitted after %d speech frames, want %d", i+1, maxFrames)
		}
	}
	if len(utterance) != ep.maxSamples {
		t.Errorf("utterance length = %d, want %d", len(utterance), ep.maxSamples)
	}
}

func TestEndpointerResumesAfterFlush(t *testing.T) {
	ep := newEndpointer(DefaultSampleRate)

	run := func(speechFrames int) []float32 {
		for i := 0; i < speechFrames; i++ {
			ep.feed(speechFrame())
		}
		var u []float32
		for i := 0; i < SilenceFrames; i++ {
			u = ep.feed(silentFrame())
		}
		return u
	}

	first := run(3)
	second := run(7)

	if want := (3 + SilenceFrames) * FrameSize; len(first) != want {
		t.Errorf("first utterance = %d samples, want %d", len(first), want)
	}
	if want := (7 + SilenceFrames) * FrameSize; len(second) != want {
		t.Errorf("second utterance = %d samples, want %d", len(second), want)
	}
}
