package trigger

import (
	"context"
	"time"

	"github.com/motoristapro/offerwatch/internal/trace"
)

// ForegroundSource reports the package of the focused app.
type ForegroundSource interface {
	ForegroundPackage(ctx context.Context) (string, error)
}

// Poller turns periodic foreground queries into signals. A package change
// emits WindowStateChanged; every other tick emits WindowContentChanged.
type Poller struct {
	source   ForegroundSource
	interval time.Duration
	emit     func(Signal)
}

// NewPoller creates a poller calling emit for each observation.
func NewPoller(source ForegroundSource, interval time.Duration, emit func(Signal)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{source: source, interval: interval, emit: emit}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := trace.Logger(ctx)
	var current string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pkg, err := p.source.ForegroundPackage(ctx)
			if err != nil {
				log.Debug("foreground query failed", "error", err)
				continue
			}
			kind := WindowContentChanged
			if pkg != current {
				kind = WindowStateChanged
				current = pkg
			}
			p.emit(Signal{Package: pkg, Kind: kind})
		}
	}
}
