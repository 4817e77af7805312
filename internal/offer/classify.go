package offer

import "github.com/shopspring/decimal"

var (
	distanceFloor = decimal.NewFromFloat(0.1)
	timeFloor     = decimal.NewFromInt(1)
)

// Result is a verdict with the yields it was derived from.
type Result struct {
	Verdict Verdict
	PerKm   decimal.Decimal
	PerHour decimal.Decimal
}

// Classify computes per-km and per-hour yield and maps them to a verdict.
// Zero distance or time are replaced by small floors for the rate math only.
func Classify(r RideReading, t ThresholdConfig) Result {
	dist := r.DistanceKM
	if dist.IsZero() {
		dist = distanceFloor
	}
	mins := r.DurationMin
	if mins.IsZero() {
		mins = timeFloor
	}

	res := Result{
		PerKm:   r.Price.Div(dist),
		PerHour: r.Price.Mul(minutesPerHour).Div(mins),
	}
	switch {
	case res.PerKm.GreaterThanOrEqual(t.GoodPerKm) && res.PerHour.GreaterThanOrEqual(t.GoodPerHour):
		res.Verdict = Good
	case res.PerKm.LessThanOrEqual(t.BadPerKm) && res.PerHour.LessThanOrEqual(t.BadPerHour):
		res.Verdict = Reject
	default:
		res.Verdict = Neutral
	}
	return res
}
