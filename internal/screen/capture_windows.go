//go:build windows

package screen

import (
	"context"
	"log/slog"
	"os"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
)

type windowsBackend struct{ tempDir string }

func (w *windowsBackend) captureRaw(ctx context.Context) ([]byte, error) {
	// TODO: Implement using Windows GDI or DXGI
	return nil, apperrors.New(apperrors.CodeCaptureFailed, "Windows screen capture not yet implemented")
}

func (w *windowsBackend) available() bool { return false }

func (w *windowsBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New(cfg Config) Capturer {
	tmpDir, err := os.MkdirTemp("", "sage-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&windowsBackend{tempDir: tmpDir}, tmpDir, cfg)
}
