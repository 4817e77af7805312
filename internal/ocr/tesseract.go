//go:build tesseract

package ocr

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

// Tesseract runs recognition in-process through libtesseract.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a local engine for the given languages (e.g. "por", "eng").
func NewTesseract(languages []string) (Engine, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "set tesseract languages")
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "set page segmentation mode")
	}
	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "recognize cancelled")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "load frame")
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "tesseract")
	}

	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, Line{Text: strings.Join(strings.Fields(b.Word), " "), Box: b.Box})
	}
	return lines, nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}
