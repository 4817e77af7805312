package offer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultIgnoreTopFraction skips the status bar and host app header.
const DefaultIgnoreTopFraction = 0.10

// FallbackPriceMinHeight is the font height a bare number needs to be taken as a price.
const FallbackPriceMinHeight = 75

var (
	pricePattern     = regexp.MustCompile(`(?:r\$|r[s5])\s*([0-9]+(?:\.[0-9]{2})?)`)
	barePricePattern = regexp.MustCompile(`^([0-9]+\.[0-9]{2})$`)
	distancePattern  = regexp.MustCompile(`\(?([0-9]+(?:\.[0-9]+)?)\s*(km|m)\b\)?`)
	clockPattern     = regexp.MustCompile(`\d{1,2}:\d{2}`)
	hourPattern      = regexp.MustCompile(`(\d+)\s*(?:h|hr|hr[s5]|h[o0]ra|h[o0]ra[s5])\b`)
	minuteCandidate  = regexp.MustCompile(`(\d+)\s*m[i1]n`)
	ownCardRate      = regexp.MustCompile(`r\$\s*[0-9.]+\s*/\s*(?:km|h)`)
)

var (
	priceMin         = decimal.NewFromFloat(4.5)
	priceMax         = decimal.NewFromInt(2000)
	fallbackPriceMin = decimal.NewFromInt(5)
	fallbackPriceMax = decimal.NewFromInt(600)
	distanceMax      = decimal.NewFromInt(800)
	hourMax          = decimal.NewFromInt(24)
	minuteMax        = decimal.NewFromInt(600)
	metersPerKm      = decimal.NewFromInt(1000)
	minutesPerHour   = decimal.NewFromInt(60)
)

// minuteUnits are tried in order at the unit position, like an alternation.
var minuteUnits = []string{"min", "minutos", "m1n", "m1ns", "mins"}

// minuteStopSuffixes reject words like "minimo", "metro", "mile" that share a prefix.
var minuteStopSuffixes = []string{"in", "etro", "l", "e", "a", "o"}

// chromeMarkers are substrings of lines that never belong to an offer: our own
// log output and card, app branding, and earnings-goal banners.
var chromeMarkers = []string{
	"lido:", "limpo:", "conclusão:", "candidato", "detectada:",
	"motorista pro", "configurações",
	"ganhe r$", "meta de ganhos",
	"r$/km", "r$/h",
}

// Extract scans OCR lines and returns the best-guess price plus cumulative
// distance and time. Lines above frameHeight*ignoreTopFraction are dropped.
func Extract(lines []TextLine, frameHeight int, ignoreTopFraction float64) PartialReading {
	var (
		acc        PartialReading
		bestHeight int
	)
	topLimit := float64(frameHeight) * ignoreTopFraction

	for _, line := range lines {
		if float64(line.Y) < topLimit {
			continue
		}
		text := Sanitize(line.Text)
		if isChrome(text) {
			continue
		}

		if v, ok := findPrice(text); ok {
			if line.FontHeight > bestHeight {
				bestHeight = line.FontHeight
				acc.Price = v
			} else if line.FontHeight == bestHeight && v.GreaterThan(acc.Price) {
				acc.Price = v
			}
		}
		if acc.Price.IsZero() && line.FontHeight > FallbackPriceMinHeight {
			if v, ok := findBarePrice(text); ok {
				acc.Price = v
				bestHeight = line.FontHeight
			}
		}

		for _, d := range findDistances(text) {
			acc.addDistance(d)
		}

		timeText := clockPattern.ReplaceAllString(text, " ")
		for _, h := range findHours(timeText) {
			m := h.Mul(minutesPerHour)
			if acc.PickupTime.IsZero() {
				acc.PickupTime = m
			} else {
				acc.TripTime = acc.TripTime.Add(m)
			}
		}
		for _, m := range findMinutes(timeText) {
			switch {
			case acc.TripTime.IsZero() && acc.PickupTime.IsPositive():
				acc.TripTime = acc.TripTime.Add(m)
			case acc.PickupTime.IsZero():
				acc.PickupTime = m
			default:
				acc.TripTime = acc.TripTime.Add(m)
			}
		}
	}
	return acc
}

// addDistance fills pickup then trip with distinct values; later values only
// extend the trip when they differ from both buckets.
func (p *PartialReading) addDistance(v decimal.Decimal) {
	switch {
	case p.PickupDistance.IsZero():
		p.PickupDistance = v
	case p.TripDistance.IsZero():
		if !v.Equal(p.PickupDistance) {
			p.TripDistance = v
		}
	case !v.Equal(p.PickupDistance) && !v.Equal(p.TripDistance):
		p.TripDistance = p.TripDistance.Add(v)
	}
}

func isChrome(text string) bool {
	if strings.HasPrefix(text, "[") && strings.Contains(text, "]") {
		return true
	}
	for _, m := range chromeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return ownCardRate.MatchString(text)
}

func findPrice(text string) (decimal.Decimal, bool) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	if !v.GreaterThan(priceMin) || !v.LessThan(priceMax) {
		return decimal.Zero, false
	}
	return v, true
}

func findBarePrice(text string) (decimal.Decimal, bool) {
	m := barePricePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	if !v.GreaterThan(fallbackPriceMin) || !v.LessThan(fallbackPriceMax) {
		return decimal.Zero, false
	}
	return v, true
}

func findDistances(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range distancePattern.FindAllStringSubmatch(text, -1) {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		if m[2] == "m" {
			v = v.Div(metersPerKm)
		}
		if v.IsPositive() && v.LessThan(distanceMax) {
			out = append(out, v)
		}
	}
	return out
}

func findHours(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range hourPattern.FindAllStringSubmatch(text, -1) {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		if v.IsPositive() && v.LessThan(hourMax) {
			out = append(out, v)
		}
	}
	return out
}

func findMinutes(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, idx := range minuteCandidate.FindAllStringSubmatchIndex(text, -1) {
		unitStart := idx[1] - 3
		if !minuteUnitAt(text[unitStart:]) {
			continue
		}
		v, err := decimal.NewFromString(text[idx[2]:idx[3]])
		if err != nil {
			continue
		}
		if v.IsPositive() && v.LessThan(minuteMax) {
			out = append(out, v)
		}
	}
	return out
}

// minuteUnitAt reports whether s starts with a minute unit that is not the
// prefix of a longer word.
func minuteUnitAt(s string) bool {
	for _, unit := range minuteUnits {
		if !strings.HasPrefix(s, unit) {
			continue
		}
		rest := s[len(unit):]
		stopped := false
		for _, suffix := range minuteStopSuffixes {
			if strings.HasPrefix(rest, suffix) {
				stopped = true
				break
			}
		}
		if !stopped {
			return true
		}
	}
	return false
}
