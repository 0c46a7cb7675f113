//go:build linux

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

type linuxBackend struct{ tempDir string }

func (l *linuxBackend) captureRaw(ctx context.Context) ([]byte, error) {
	tmpFile := filepath.Join(l.tempDir, "screenshot.png")
	// Try gnome-screenshot first, fall back to scrot
	var cmd *exec.Cmd
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		cmd = exec.CommandContext(ctx, "gnome-screenshot", "-f", tmpFile)
	} else if _, err := exec.LookPath("scrot"); err == nil {
		cmd = exec.CommandContext(ctx, "scrot", "-o", tmpFile)
	} else {
		return nil, apperrors.New(apperrors.CodeCaptureFailed, "no screenshot tool found (install gnome-screenshot or scrot)")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "screenshot failed").
			WithMetadata("stderr", stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "read screenshot")
	}
	os.Remove(tmpFile)
	return data, nil
}

func (l *linuxBackend) available() bool {
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		return true
	}
	_, err := exec.LookPath("scrot")
	return err == nil
}

func (l *linuxBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New(cfg Config) Capturer {
	tmpDir, err := os.MkdirTemp("", "sage-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&linuxBackend{tempDir: tmpDir}, tmpDir, cfg)
}
