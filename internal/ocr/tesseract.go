package ocr

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

// Tesseract extracts text by piping images through the tesseract CLI in
// TSV mode, which reports per-word bounding boxes and confidences.
type Tesseract struct {
	binary string // resolved path, empty when not installed
}

// NewTesseract probes for the tesseract binary once.
func NewTesseract() *Tesseract {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		slog.Warn("tesseract not found, OCR disabled", "error", err)
		return &Tesseract{}
	}
	slog.Debug("tesseract resolved", "path", path)
	return &Tesseract{binary: path}
}

// Available reports whether the tesseract binary was found.
func (t *Tesseract) Available() bool { return t.binary != "" }

// Extract runs tesseract over the image and returns word fragments.
func (t *Tesseract) Extract(ctx context.Context, image []byte) ([]Fragment, error) {
	if t.binary == "" {
		return nil, apperrors.New(apperrors.CodeExtractionFailed, "tesseract not installed")
	}

	ctx, cancel := context.WithTimeout(ctx, ExtractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "--psm", PSMAuto, "tsv")
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtractionFailed, "tesseract failed").
			WithMetadata("stderr", strings.TrimSpace(stderr.String()))
	}
	return parseTSV(stdout.Bytes())
}

// parseTSV pulls word-level rows out of tesseract's TSV output. Non-word
// rows (page/block/line structure) and empty detections are dropped.
func parseTSV(data []byte) ([]Fragment, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var frags []Fragment
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < tsvColumns {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != tsvWordLevel {
			continue
		}
		text := strings.TrimSpace(cols[tsvColText])
		if text == "" {
			continue
		}

		conf := -1.0
		if v, err := strconv.ParseFloat(cols[tsvColConf], 64); err == nil && v >= 0 {
			conf = v / 100 // tesseract reports 0-100
		}

		left, _ := strconv.Atoi(cols[tsvColLeft])
		top, _ := strconv.Atoi(cols[tsvColTop])
		width, _ := strconv.Atoi(cols[tsvColWidth])
		height, _ := strconv.Atoi(cols[tsvColHeight])

		frags = append(frags, Fragment{
			Text:       text,
			Box:        Box{X: left, Y: top, Width: width, Height: height},
			Confidence: conf,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtractionFailed, "parse tesseract output")
	}
	return frags, nil
}
