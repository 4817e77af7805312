// Package overlay carries decision cards from the capture pipeline to
// whatever renders them: connected web clients, a terminal, or both.
package overlay

import (
	"time"

	"github.com/motoristapro/offerwatch/internal/offer"
)

// Card is one decision hint.
type Card struct {
	App     offer.App         `json:"app"`
	Reading offer.RideReading `json:"-"`
	Result  offer.Result      `json:"-"`
	At      time.Time         `json:"at"`
}

// NewCard builds a card for a classified reading.
func NewCard(app offer.App, r offer.RideReading, res offer.Result, at time.Time) Card {
	return Card{App: app, Reading: r, Result: res, At: at}
}

// PriceText renders "R$ 18.50".
func (c Card) PriceText() string {
	return "R$ " + c.Reading.Price.StringFixed(2)
}

// DetailText renders "4.8 km • 15 min".
func (c Card) DetailText() string {
	return c.Reading.DistanceKM.StringFixed(1) + " km • " + c.Reading.DurationMin.StringFixed(0) + " min"
}

// RateText renders "R$ 3.85/km • R$ 74/h".
func (c Card) RateText() string {
	return "R$ " + c.Result.PerKm.StringFixed(2) + "/km • R$ " + c.Result.PerHour.StringFixed(0) + "/h"
}

// Label is the verdict text.
func (c Card) Label() string { return c.Result.Verdict.Label() }

// Color is the verdict hex color.
func (c Card) Color() string { return c.Result.Verdict.Color() }

// View is the wire form of a card.
type View struct {
	App     offer.App     `json:"app"`
	Verdict offer.Verdict `json:"verdict"`
	Label   string        `json:"label"`
	Color   string        `json:"color"`
	Price   string        `json:"price"`
	Details string        `json:"details"`
	Rates   string        `json:"rates"`
	At      time.Time     `json:"at"`
}

// View flattens the card into display strings.
func (c Card) View() View {
	return View{
		App:     c.App,
		Verdict: c.Result.Verdict,
		Label:   c.Label(),
		Color:   c.Color(),
		Price:   c.PriceText(),
		Details: c.DetailText(),
		Rates:   c.RateText(),
		At:      c.At,
	}
}
