//go:build darwin

package screen

import (
	"context"
	"path/filepath"
)

type darwinBackend struct {
	tempDir string
	run     runFunc
}

func (d *darwinBackend) captureRaw(ctx context.Context) ([]byte, error) {
	tmpFile := filepath.Join(d.tempDir, "screenshot.png")
	// -x: no sound, -m: main display only
	return readTemp(ctx, d.run, tmpFile, "screencapture", "-x", "-t", "png", "-m", tmpFile)
}

func (d *darwinBackend) cleanup() {}

func newNative() Capturer {
	tmpDir := makeTempDir()
	return newBase(&darwinBackend{tempDir: tmpDir, run: execRun}, tmpDir)
}
