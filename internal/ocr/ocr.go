// Package ocr extracts text fragments from screen images
package ocr

import "context"

// Box is a fragment bounding box in image coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Fragment is one recognized piece of text.
type Fragment struct {
	Text string `json:"text"`
	Box  Box    `json:"box"`
	// Confidence in [0,1], or negative when the backend reports none.
	Confidence float64 `json:"confidence"`
}

// Engine turns an image into text fragments.
type Engine interface {
	Extract(ctx context.Context, image []byte) ([]Fragment, error)
	// Available reports whether the backend can run on this system.
	Available() bool
}
