//go:build !darwin && !linux

package screen

import (
	"context"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

type unsupportedBackend struct{}

func (unsupportedBackend) captureRaw(context.Context) ([]byte, error) {
	return nil, apperrors.New(apperrors.CodeCaptureUnsupported, "native screen capture is not available on this platform; use the adb backend")
}

func (unsupportedBackend) cleanup() {}

func newNative() Capturer {
	return newBase(unsupportedBackend{}, "")
}
