// Package monitor runs the screen context pipeline: capture, extract,
// score, detect change, store, notify.
package monitor

import (
	"bytes"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"time"

	"github.com/corona10/goimagehash"

	"github.com/Dedeep007/SAGE/internal/screen"
)

// ScreenContext is an immutable snapshot of recognized on-screen text.
// Superseded contexts are replaced, never mutated.
type ScreenContext struct {
	Text       string         `json:"text"`
	Timestamp  time.Time      `json:"timestamp"`
	Confidence float64        `json:"confidence"`
	Region     *screen.Region `json:"region,omitempty"`
	ImageHash  string         `json:"image_hash,omitempty"`
}

// HashImage fingerprints a frame for change detection using a perceptual
// hash, stable under minor pixel noise. Returns "" for undecodable frames,
// so two bad frames never trigger a hash-based change by themselves.
func HashImage(data []byte) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return ""
	}
	return hash.ToString()
}
