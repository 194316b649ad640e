package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reDate   = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|[A-Z][a-z]{2,9}\s+\d{1,2},\s*\d{4})\b`)
	reAmount = regexp.MustCompile(`\$?\s*\d{1,3}(?:,\d{3})*\.\d{2}\b`)
	reUnit   = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kwh|mi|miles|min)\b`)
)

// heuristicConfidence scores recognized text in [0,1] from the signals our
// extractors rely on: dates, money amounts, usage units and mostly printable text.
func heuristicConfidence(text string) float32 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	var score float32
	if reDate.MatchString(t) {
		score += 0.25
	}
	if reAmount.MatchString(t) {
		score += 0.3
	}
	if reUnit.MatchString(t) {
		score += 0.15
	}

	var good, total int
	for _, r := range t {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || r == '$' {
			good++
		}
	}
	score += 0.3 * float32(good) / float32(total)

	if score > 1 {
		score = 1
	}
	return score
}
