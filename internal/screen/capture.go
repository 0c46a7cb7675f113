// Package screen provides platform-agnostic screen capture using native OS tools
package screen

import (
	"context"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

// Region is a rectangular capture area in screen coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseRegion parses a "x,y,width,height" string. Empty input means full screen.
func ParseRegion(s string) (*Region, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "capture region %q: want x,y,width,height", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "capture region %q", s)
		}
		vals[i] = v
	}
	r := &Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "capture region %q: width and height must be positive", s)
	}
	return r, nil
}

// Capturer captures screenshots of the primary display.
type Capturer interface {
	// Capture grabs one frame and returns JPEG bytes.
	Capture(ctx context.Context) ([]byte, error)
	// Region reports the configured capture area, nil for full screen.
	Region() *Region
	// Available reports whether a capture tool exists on this system.
	Available() bool
	Close()
}

// Config controls capture behavior.
type Config struct {
	Region     *Region // nil captures the full screen
	Preprocess bool    // downscale and grayscale for OCR
}

// backend implements platform-specific raw capture
type backend interface {
	captureRaw(ctx context.Context) ([]byte, error)
	available() bool
	cleanup()
}

// baseCapturer layers cropping and preprocessing over a raw backend
type baseCapturer struct {
	backend
	region     *Region
	preprocess bool
	tempDir    string
}

func newBase(b backend, tempDir string, cfg Config) *baseCapturer {
	return &baseCapturer{backend: b, region: cfg.Region, preprocess: cfg.Preprocess, tempDir: tempDir}
}

func (c *baseCapturer) Capture(ctx context.Context) ([]byte, error) {
	data, err := c.captureRaw(ctx)
	if err != nil {
		return nil, err
	}
	return c.process(data)
}

func (c *baseCapturer) Region() *Region { return c.region }

func (c *baseCapturer) Available() bool { return c.available() }

func (c *baseCapturer) Close() {
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}
