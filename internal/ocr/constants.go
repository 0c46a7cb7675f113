package ocr

import "time"

// Tesseract invocation constants
const (
	// Fully automatic page segmentation
	PSMAuto = "3"

	// Bound on a single extraction run
	ExtractTimeout = 30 * time.Second
)

// TSV output layout: level page block par line word left top width height conf text
const (
	tsvColumns   = 12
	tsvWordLevel = 5
	tsvColLeft   = 6
	tsvColTop    = 7
	tsvColWidth  = 8
	tsvColHeight = 9
	tsvColConf   = 10
	tsvColText   = 11
)
