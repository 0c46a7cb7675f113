//go:build darwin

package screen

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

type darwinBackend struct{ tempDir string }

func (d *darwinBackend) captureRaw(ctx context.Context) ([]byte, error) {
	tmpFile := filepath.Join(d.tempDir, "screenshot.jpg")
	// -x: no sound, -t jpg: JPEG format, -m: main display only
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "jpg", "-m", tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "screencapture failed").
			WithMetadata("stderr", stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "read screenshot")
	}
	os.Remove(tmpFile)
	return data, nil
}

func (d *darwinBackend) available() bool {
	_, err := exec.LookPath("screencapture")
	return err == nil
}

func (d *darwinBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New(cfg Config) Capturer {
	tmpDir, err := os.MkdirTemp("", "sage-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&darwinBackend{tempDir: tmpDir}, tmpDir, cfg)
}
