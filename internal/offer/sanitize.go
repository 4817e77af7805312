package offer

import (
	"regexp"
	"strings"
)

var (
	minuteWord   = regexp.MustCompile(`m[1il]nut[o0]5?`)
	minuteAbbrev = regexp.MustCompile(`m[1il]n`)

	// Applied only when a unit is present so ordinary words survive.
	ocrDigitFix = strings.NewReplacer("o", "0", "l", "1", "i", "1", "s", "5", "b", "8")
)

// Sanitize normalizes one raw OCR line before pattern matching.
func Sanitize(raw string) string {
	text := strings.ToLower(raw)
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, ",", ".")

	// Replacing "minuto" can splice a new match out of its neighbours.
	for {
		next := minuteWord.ReplaceAllString(text, "min")
		if next == text {
			break
		}
		text = next
	}
	text = minuteAbbrev.ReplaceAllString(text, "min")

	if hasUnit(text) {
		text = ocrDigitFix.Replace(text)
	}
	return text
}

func hasUnit(text string) bool {
	return strings.Contains(text, "km") ||
		strings.Contains(text, "min") ||
		strings.Contains(text, "m ") ||
		strings.HasSuffix(text, "m") ||
		strings.Contains(text, "h")
}
