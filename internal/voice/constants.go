package voice

import "time"

// Capture and segmentation constants
const (
	// DefaultSampleRate is the capture rate expected by the transcription model
	DefaultSampleRate = 16000

	// FrameSize is samples per frame: 20ms at 16kHz
	FrameSize = 320

	// SilenceThresholdRMS separates speech frames from silence
	SilenceThresholdRMS = 0.015

	// SilenceFrames of trailing silence end an utterance (600ms)
	SilenceFrames = 30

	// MaxUtterance bounds a single utterance
	MaxUtterance = 10 * time.Second

	// TranscribeTimeout bounds one transcription call
	TranscribeTimeout = 30 * time.Second

	// StopTimeout bounds the capture loop join on Stop
	StopTimeout = 2 * time.Second

	// ResultBuffer is the outbound transcript channel capacity
	ResultBuffer = 8
)
