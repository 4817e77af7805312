package screen

import (
	"context"
	"image"
	"os/exec"

	"github.com/disintegration/imaging"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

// Backend names accepted by New.
const (
	BackendAuto   = "auto"
	BackendADB    = "adb"
	BackendNative = "native"
)

// Options selects and parameterises a capture backend.
type Options struct {
	Backend   string
	ADBSerial string
}

// New creates a capturer for the requested backend. Auto prefers an attached
// Android device and falls back to the local display.
func New(opts Options) (Capturer, error) {
	switch opts.Backend {
	case BackendADB:
		return NewADB(opts.ADBSerial), nil
	case BackendNative:
		return newNative(), nil
	case BackendAuto, "":
		if _, err := exec.LookPath("adb"); err == nil {
			return NewADB(opts.ADBSerial), nil
		}
		return newNative(), nil
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown capture backend %q", opts.Backend)
	}
}

// Static serves the same image on every capture. Used to analyze saved screenshots.
type Static struct {
	img image.Image
}

// NewStatic wraps an already decoded frame.
func NewStatic(img image.Image) *Static {
	return &Static{img: img}
}

// OpenStatic loads a screenshot file (PNG, JPEG, ...).
func OpenStatic(path string) (*Static, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "open screenshot").WithMetadata("path", path)
	}
	return NewStatic(img), nil
}

func (s *Static) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture cancelled")
	}
	return s.img, nil
}

func (s *Static) Close() {}
