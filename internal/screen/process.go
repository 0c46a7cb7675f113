package screen

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // gnome-screenshot and scrot emit PNG
	"log/slog"

	"github.com/nfnt/resize"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

// process crops the frame to the configured region and, when preprocessing
// is on, downscales and grayscales it for OCR. Raw bytes pass through
// untouched when neither applies.
func (c *baseCapturer) process(data []byte) ([]byte, error) {
	if c.region == nil && !c.preprocess {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("screenshot decode failed, using raw frame", "error", err)
		return data, nil
	}

	if c.region != nil {
		img = crop(img, c.region)
	}
	if c.preprocess {
		img = grayscale(shrink(img))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "encode screenshot")
	}
	return buf.Bytes(), nil
}

// crop returns the sub-image covered by the region, clamped to image bounds.
func crop(img image.Image, r *Region) image.Image {
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Intersect(img.Bounds())
	if rect.Empty() {
		return img
	}
	if si, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return si.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// shrink downscales so neither dimension exceeds MaxDimension.
func shrink(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= MaxDimension && b.Dy() <= MaxDimension {
		return img
	}
	return resize.Thumbnail(MaxDimension, MaxDimension, img, resize.Lanczos3)
}

func grayscale(img image.Image) image.Image {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
