// Package ocr turns a frame into text lines with bounding boxes. Engines are
// a remote gRPC service or a local Tesseract build.
package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/resilience"
)

// Engine names accepted by New.
const (
	EngineGRPC      = "grpc"
	EngineTesseract = "tesseract"
)

// WarmupSize is the edge length of the blank warm-up frame.
const WarmupSize = 100

// Line is one recognized text line.
type Line struct {
	Text string
	Box  image.Rectangle
}

// Engine recognizes text lines in an image. Implementations must be safe for
// use by one caller at a time; the orchestrator never calls concurrently.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Line, error)
	Close() error
}

// readier is implemented by engines that can report readiness before use.
type readier interface {
	Ready(ctx context.Context) error
}

// Options selects and configures an engine.
type Options struct {
	Engine    string
	Addr      string
	Languages []string
	Timeout   time.Duration
}

// New creates the configured engine.
func New(opts Options) (Engine, error) {
	switch strings.ToLower(opts.Engine) {
	case EngineGRPC, "":
		return DialGRPC(opts.Addr, opts.Languages, opts.Timeout)
	case EngineTesseract:
		return NewTesseract(opts.Languages)
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown ocr engine %q", opts.Engine)
	}
}

// ToTextLines converts engine output to extractor input. Font height is
// approximated by the box height and position by its top edge.
func ToTextLines(lines []Line) []offer.TextLine {
	out := make([]offer.TextLine, 0, len(lines))
	for _, l := range lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		out = append(out, offer.TextLine{Text: text, FontHeight: l.Box.Dy(), Y: l.Box.Min.Y})
	}
	return out
}

// WarmupImage returns the blank frame used to absorb first-call latency.
func WarmupImage() image.Image {
	return imaging.New(WarmupSize, WarmupSize, color.White)
}

// Warmup waits for the engine to become ready, then runs one recognition on
// a blank frame. Failures are returned for logging only.
func Warmup(ctx context.Context, e Engine) error {
	start := time.Now()
	if r, ok := e.(readier); ok {
		if err := resilience.Retry(ctx, resilience.WarmupRetryConfig(), func() error { return r.Ready(ctx) }); err != nil {
			return err
		}
	}
	if _, err := e.Recognize(ctx, WarmupImage()); err != nil {
		return err
	}
	slog.Info("ocr engine warmed up", "took", time.Since(start))
	return nil
}

// encodePNG serialises a frame for engines that take image bytes.
func encodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, apperrors.New(apperrors.CodeOCRInvalidImage, "empty frame")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "encode frame")
	}
	return buf.Bytes(), nil
}
