// Package screen grabs frames of the driver's screen, either from an Android
// device over ADB or from the local display.
package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

// Capturer captures one decoded frame per call.
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
	Close()
}

// backend implements platform-specific raw capture
type backend interface {
	captureRaw(ctx context.Context) ([]byte, error)
	cleanup()
}

// runFunc executes an external capture tool and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// baseCapturer decodes whatever the backend produced.
type baseCapturer struct {
	backend
	tempDir string
}

func newBase(b backend, tempDir string) *baseCapturer {
	return &baseCapturer{backend: b, tempDir: tempDir}
}

func (c *baseCapturer) Capture(ctx context.Context) (image.Image, error) {
	data, err := c.captureRaw(ctx)
	if err != nil {
		var appErr *apperrors.AppError
		switch {
		case errors.As(err, &appErr):
			return nil, err
		case ctx.Err() != nil:
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "capture cancelled")
		default:
			return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "screenshot failed")
		}
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeCaptureFailed, "empty screenshot")
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "decode screenshot").
			WithMetadata("bytes", fmt.Sprint(len(data)))
	}
	return img, nil
}

func (c *baseCapturer) Close() {
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

// readTemp runs a tool that writes its screenshot to path and returns the file contents.
func readTemp(ctx context.Context, run runFunc, path, name string, args ...string) ([]byte, error) {
	if _, err := run(ctx, name, args...); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		slog.Debug("failed to remove screenshot", "path", path, "error", err)
	}
	return data, nil
}

func makeTempDir() string {
	tmpDir, err := os.MkdirTemp("", "offerwatch-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		return ""
	}
	return tmpDir
}
