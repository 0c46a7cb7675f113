package screen

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// makeJPEG creates a w x h test image with a horizontal gradient.
func makeJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}

func decodeBounds(t *testing.T, data []byte) image.Rectangle {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode processed frame: %v", err)
	}
	return img.Bounds()
}

func TestProcessCropsToRegion(t *testing.T) {
	c := &baseCapturer{region: &Region{X: 8, Y: 8, Width: 16, Height: 12}}

	out, err := c.process(makeJPEG(64, 64))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	b := decodeBounds(t, out)
	if b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("cropped size = %dx%d, want 16x12", b.Dx(), b.Dy())
	}
}

func TestProcessClampsOversizedRegion(t *testing.T) {
	c := &baseCapturer{region: &Region{X: 32, Y: 32, Width: 100, Height: 100}}

	out, err := c.process(makeJPEG(64, 64))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	b := decodeBounds(t, out)
	if b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("clamped size = %dx%d, want 32x32", b.Dx(), b.Dy())
	}
}

func TestProcessIgnoresRegionOutsideBounds(t *testing.T) {
	c := &baseCapturer{region: &Region{X: 500, Y: 500, Width: 10, Height: 10}}

	out, err := c.process(makeJPEG(64, 64))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	b := decodeBounds(t, out)
	if b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("size = %dx%d, want original 64x64", b.Dx(), b.Dy())
	}
}

func TestProcessShrinksLargeFrames(t *testing.T) {
	c := &baseCapturer{preprocess: true}

	out, err := c.process(makeJPEG(MaxDimension+480, 1000))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	b := decodeBounds(t, out)
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		t.Errorf("size = %dx%d, want max dimension <= %d", b.Dx(), b.Dy(), MaxDimension)
	}
	if b.Dx() != MaxDimension {
		t.Errorf("width = %d, want %d", b.Dx(), MaxDimension)
	}
}

func TestProcessKeepsSmallFrames(t *testing.T) {
	c := &baseCapturer{preprocess: true}

	out, err := c.process(makeJPEG(100, 80))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	b := decodeBounds(t, out)
	if b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("size = %dx%d, want 100x80", b.Dx(), b.Dy())
	}
}

func TestProcessGrayscales(t *testing.T) {
	c := &baseCapturer{preprocess: true}

	out, err := c.process(makeJPEG(64, 64))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r != g || g != b {
		t.Errorf("pixel (10,10) = (%d,%d,%d), want grayscale", r, g, b)
	}
}

func TestProcessBadImagePassesThrough(t *testing.T) {
	c := &baseCapturer{preprocess: true}
	raw := []byte("not an image")

	out, err := c.process(raw)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if string(out) != string(raw) {
		t.Error("undecodable frames should pass through unchanged")
	}
}
