package pipeline

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/motoristapro/offerwatch/internal/ocr"
	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/screen"
	"github.com/motoristapro/offerwatch/internal/screen/preprocess"
	"github.com/motoristapro/offerwatch/internal/trace"
)

// Stage is the step a capture attempt is in.
type Stage int

const (
	StageCapturing Stage = iota
	StagePreprocessing
	StageRecognizing
)

// Frame is the outcome of one capture attempt.
type Frame struct {
	Lines  []offer.TextLine
	Height int
	Dark   bool
	// Unchanged is set when a retry saw the same screen as the previous
	// attempt and OCR was skipped.
	Unchanged bool
}

// Processor handles screen capture, preprocessing and OCR.
type Processor struct {
	capturer screen.Capturer
	engine   ocr.Engine

	mu       sync.RWMutex
	lastHash *goimagehash.ImageHash
	lines    []offer.TextLine
}

// NewProcessor creates a processor.
func NewProcessor(capturer screen.Capturer, engine ocr.Engine) *Processor {
	return &Processor{capturer: capturer, engine: engine}
}

// Run performs one attempt. Capture and OCR errors are returned; a
// preprocessing failure falls back to the raw frame. On a retry, a frame
// perceptually identical to the previous attempt skips OCR.
func (p *Processor) Run(ctx context.Context, retry bool, onStage func(Stage)) (Frame, error) {
	if onStage == nil {
		onStage = func(Stage) {}
	}
	log := trace.Logger(ctx)

	onStage(StageCapturing)
	img, err := p.capturer.Capture(ctx)
	if err != nil {
		return Frame{}, err
	}
	frame := Frame{Height: img.Bounds().Dy()}

	if p.sameAsPrevious(img) && retry {
		log.Debug("frame unchanged since first attempt, skipping ocr")
		frame.Unchanged = true
		return frame, nil
	}

	onStage(StagePreprocessing)
	pre, err := preprocess.Apply(img)
	if err != nil {
		log.Warn("preprocessing failed, using raw frame", "error", err)
	} else {
		log.Debug("frame preprocessed", "frame", pre.Describe())
	}
	frame.Dark = pre.Dark

	onStage(StageRecognizing)
	lines, err := p.engine.Recognize(ctx, pre.Image)
	if err != nil {
		return frame, err
	}
	frame.Lines = ocr.ToTextLines(lines)

	p.mu.Lock()
	p.lines = frame.Lines
	p.mu.Unlock()
	return frame, nil
}

// sameAsPrevious hashes img, remembers the hash and reports whether it is
// within MaxHashDistance of the previous one.
func (p *Processor) sameAsPrevious(img image.Image) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.lastHash
	p.lastHash = hash
	if prev == nil {
		return false
	}
	dist, err := prev.Distance(hash)
	return err == nil && dist <= MaxHashDistance
}

// Text returns the text of the latest recognized frame, one line per row.
func (p *Processor) Text() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	parts := make([]string, len(p.lines))
	for i, l := range p.lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}
