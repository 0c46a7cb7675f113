package voice

import (
	"math"
	"time"
)

// endpointer segments speech out of a continuous frame stream by RMS
// energy. Frames are accumulated once speech is detected; the utterance
// ends after SilenceFrames of trailing silence or at the length bound.
type endpointer struct {
	maxSamples int

	utterance []float32
	speaking  bool
	silence   int
}

func newEndpointer(sampleRate int) *endpointer {
	return &endpointer{maxSamples: sampleRate * int(MaxUtterance/time.Second)}
}

// feed consumes one frame and returns a completed utterance, or nil
// while segmentation is still in progress.
func (e *endpointer) feed(frame []float32) []float32 {
	rms := frameRMS(frame)
	switch {
	case rms > SilenceThresholdRMS:
		e.speaking = true
		e.silence = 0
		e.utterance = append(e.utterance, frame...)
	case e.speaking:
		e.silence++
		e.utterance = append(e.utterance, frame...)
		if e.silence >= SilenceFrames {
			return e.take()
		}
	}
	if len(e.utterance) >= e.maxSamples {
		return e.take()
	}
	return nil
}

func (e *endpointer) take() []float32 {
	u := e.utterance
	e.utterance = nil
	e.speaking = false
	e.silence = 0
	return u
}

func frameRMS(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
