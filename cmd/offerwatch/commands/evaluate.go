package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/overlay"
)

// Evaluation is the machine-readable result of extract and analyze.
type Evaluation struct {
	Accepted bool                 `json:"accepted"`
	Partial  offer.PartialReading `json:"partial"`
	Card     *overlay.View        `json:"card,omitempty"`
}

// evaluate runs extraction, validation and classification on recognized
// lines the same way a capture cycle does.
func evaluate(lines []offer.TextLine, height int, app offer.App, t offer.ThresholdConfig) (Evaluation, *overlay.Card) {
	partial := offer.Extract(lines, height, cfg.IgnoreTopFraction)
	ev := Evaluation{Partial: partial}

	reading, ok := offer.NewValidator().Accept(partial)
	if !ok {
		return ev, nil
	}
	card := overlay.NewCard(app, reading, offer.Classify(reading, t), time.Now())
	view := card.View()
	ev.Accepted = true
	ev.Card = &view
	return ev, &card
}

func printEvaluation(w io.Writer, ev Evaluation, card *overlay.Card, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	}
	if card == nil {
		p := ev.Partial
		_, err := fmt.Fprintf(w, "no actionable offer (price %s, distance %s km, time %s min)\n",
			p.Price.StringFixed(2), p.TotalDistance(), p.TotalTime())
		return err
	}
	_, err := fmt.Fprintln(w, overlay.Render(*card))
	return err
}
