//go:build linux

package screen

import (
	"context"
	"os/exec"
	"path/filepath"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

type linuxBackend struct {
	tempDir string
	run     runFunc
}

func (l *linuxBackend) captureRaw(ctx context.Context) ([]byte, error) {
	tmpFile := filepath.Join(l.tempDir, "screenshot.png")
	// Try gnome-screenshot first, fall back to scrot
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		return readTemp(ctx, l.run, tmpFile, "gnome-screenshot", "-f", tmpFile)
	}
	if _, err := exec.LookPath("scrot"); err == nil {
		return readTemp(ctx, l.run, tmpFile, "scrot", "-o", tmpFile)
	}
	return nil, apperrors.New(apperrors.CodeCaptureUnsupported, "no screenshot tool found (install gnome-screenshot or scrot)")
}

func (l *linuxBackend) cleanup() {}

func newNative() Capturer {
	tmpDir := makeTempDir()
	return newBase(&linuxBackend{tempDir: tmpDir, run: execRun}, tmpDir)
}
