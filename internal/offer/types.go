// Package offer turns OCR text lines from a ride-hailing offer screen into a
// validated reading and a profitability verdict.
package offer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

// TextLine is one OCR line of a captured frame.
type TextLine struct {
	Text       string `json:"text"`
	FontHeight int    `json:"h"`
	Y          int    `json:"y"`
}

// RideReading is one extracted (price, distance, time) triple.
type RideReading struct {
	Price       decimal.Decimal
	DistanceKM  decimal.Decimal
	DurationMin decimal.Decimal
}

// Equal reports structural equality of all three fields.
func (r RideReading) Equal(o RideReading) bool {
	return r.Price.Equal(o.Price) && r.DistanceKM.Equal(o.DistanceKM) && r.DurationMin.Equal(o.DurationMin)
}

func (r RideReading) String() string {
	return fmt.Sprintf("R$ %s | %s km | %s min", r.Price.StringFixed(2), r.DistanceKM.String(), r.DurationMin.String())
}

// PartialReading is the raw output of Extract before validation.
type PartialReading struct {
	Price          decimal.Decimal
	PickupDistance decimal.Decimal
	TripDistance   decimal.Decimal
	PickupTime     decimal.Decimal
	TripTime       decimal.Decimal
}

// TotalDistance returns pickup + trip distance in km.
func (p PartialReading) TotalDistance() decimal.Decimal {
	return p.PickupDistance.Add(p.TripDistance)
}

// TotalTime returns pickup + trip time in minutes.
func (p PartialReading) TotalTime() decimal.Decimal {
	return p.PickupTime.Add(p.TripTime)
}

// HasPrice reports whether any price was found.
func (p PartialReading) HasPrice() bool {
	return p.Price.IsPositive()
}

// Actionable reports whether the reading carries a price plus a distance or time signal.
func (p PartialReading) Actionable() bool {
	return p.HasPrice() && (p.TotalDistance().IsPositive() || p.TotalTime().IsPositive())
}

// Verdict is the three-level profitability classification.
type Verdict int

const (
	Neutral Verdict = iota
	Good
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Good:
		return "good"
	case Reject:
		return "reject"
	default:
		return "neutral"
	}
}

// Label is the text shown on the overlay card.
func (v Verdict) Label() string {
	switch v {
	case Good:
		return "ÓTIMA"
	case Reject:
		return "RECUSAR"
	default:
		return "ANALISAR"
	}
}

// Color is the hex display color of the verdict.
func (v Verdict) Color() string {
	switch v {
	case Good:
		return "#4ADE80"
	case Reject:
		return "#F87171"
	default:
		return "#FACC15"
	}
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a verdict name; unknown names decode as Neutral.
func (v *Verdict) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "good":
		*v = Good
	case "reject":
		*v = Reject
	default:
		*v = Neutral
	}
	return nil
}

// ThresholdConfig holds the user's per-km and per-hour yield thresholds.
type ThresholdConfig struct {
	GoodPerKm   decimal.Decimal `json:"good_per_km"`
	BadPerKm    decimal.Decimal `json:"bad_per_km"`
	GoodPerHour decimal.Decimal `json:"good_per_hour"`
	BadPerHour  decimal.Decimal `json:"bad_per_hour"`
}

// DefaultThresholds returns the factory thresholds.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		GoodPerKm:   decimal.NewFromFloat(2.0),
		BadPerKm:    decimal.NewFromFloat(1.5),
		GoodPerHour: decimal.NewFromInt(60),
		BadPerHour:  decimal.NewFromInt(40),
	}
}

// Validate checks that thresholds are non-negative and each bad value does
// not exceed its good counterpart. Classify never calls it.
func (t ThresholdConfig) Validate() error {
	var problems []string
	fields := []struct {
		name string
		v    decimal.Decimal
	}{
		{"good_per_km", t.GoodPerKm}, {"bad_per_km", t.BadPerKm},
		{"good_per_hour", t.GoodPerHour}, {"bad_per_hour", t.BadPerHour},
	}
	for _, f := range fields {
		if f.v.IsNegative() {
			problems = append(problems, f.name+" must not be negative")
		}
	}
	if t.BadPerKm.GreaterThan(t.GoodPerKm) {
		problems = append(problems, "bad_per_km exceeds good_per_km")
	}
	if t.BadPerHour.GreaterThan(t.GoodPerHour) {
		problems = append(problems, "bad_per_hour exceeds good_per_hour")
	}
	if len(problems) > 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, "invalid thresholds: "+strings.Join(problems, "; "))
	}
	return nil
}

// App identifies which driver app produced the offer.
type App string

const (
	AppUber App = "UBER"
	App99   App = "99"
)

// DetectApp maps a foreground package identifier to an App badge.
func DetectApp(pkg string) App {
	p := strings.ToLower(pkg)
	if strings.Contains(p, "taxis99") || strings.Contains(p, "didi") || strings.Contains(p, "99") {
		return App99
	}
	return AppUber
}
