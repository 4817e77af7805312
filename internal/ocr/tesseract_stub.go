//go:build !tesseract

package ocr

import apperrors "github.com/motoristapro/offerwatch/internal/errors"

// NewTesseract reports that this binary was built without libtesseract.
// Rebuild with -tags tesseract to enable the local engine.
func NewTesseract([]string) (Engine, error) {
	return nil, apperrors.New(apperrors.CodeOCRInitFailed, "built without tesseract support (use -tags tesseract)")
}
