package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/ecoscore/constants"
)

var (
	reDistance  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:mi|miles)\b`)
	reDuration  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:min|mins|minutes)\b`)
	reClockTime = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s*[AP]M)\b`)
	reWordDate  = regexp.MustCompile(`\b([A-Z][a-z]{2,9})\s+(\d{1,2}),\s*(\d{4})\b`)
	reNumDate   = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)
	reDollar    = regexp.MustCompile(`\$\s*(\d+(?:\.\d{2})?)`)
)

// ExtractTrip parses a rideshare receipt. The input is normalized first so raw
// OCR text can be passed straight in.
//
// Pickup and dropoff assume the layout "address line, then label line"; when a
// receipt prints the label first the fields come back wrong or nil.
func ExtractTrip(text string) TransportTripRecord {
	cleaned := Normalize(text)
	rec := TransportTripRecord{
		Provider:    guessProvider(cleaned),
		Date:        findTripDate(cleaned),
		CharCount:   utf8.RuneCountInString(cleaned),
		CleanedText: cleaned,
	}

	if m := reDistance.FindStringSubmatch(cleaned); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			rec.DistanceMiles = floatPtr(v)
		}
	}
	if m := reDuration.FindStringSubmatch(cleaned); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			rec.DurationMin = floatPtr(v)
		}
	}
	times := reClockTime.FindAllStringSubmatch(cleaned, 2)
	if len(times) > 0 {
		rec.StartTime = strPtr(times[0][1])
	}
	if len(times) > 1 {
		rec.EndTime = strPtr(times[1][1])
	}
	if m := reDollar.FindStringSubmatch(cleaned); m != nil {
		if d, err := decimal.NewFromString(m[1]); err == nil {
			rec.PriceTotal = &d
		}
	}
	rec.Pickup, rec.Dropoff = findPickDrop(cleaned)
	return rec
}

func guessProvider(text string) constants.TripProvider {
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "lyft"):
		return constants.ProviderLyft
	case strings.Contains(low, "uber"):
		return constants.ProviderUber
	default:
		return constants.ProviderUnknown
	}
}

// findTripDate tries the first worded date, then the first numeric one.
func findTripDate(text string) *string {
	if m := reWordDate.FindStringSubmatch(text); m != nil {
		if t, ok := parseWordedDate(m[1], m[2], m[3]); ok {
			return strPtr(t.Format(isoDate))
		}
	}
	if m := reNumDate.FindStringSubmatch(text); m != nil {
		if t, ok := parseNumericDate(m[1]); ok {
			return strPtr(t.Format(isoDate))
		}
	}
	return nil
}

// findPickDrop takes the line before each "pickup" / "drop-off" label line.
// Later labels overwrite earlier ones.
func findPickDrop(text string) (pickup, dropoff *string) {
	lines := Lines(text)
	for i := 1; i < len(lines); i++ {
		low := strings.ToLower(lines[i])
		prev := lines[i-1]
		if IsSummaryLine(prev) {
			continue
		}
		if strings.Contains(low, "pickup") {
			pickup = strPtr(prev)
		}
		if strings.Contains(low, "drop-off") || strings.Contains(low, "drop off") {
			dropoff = strPtr(prev)
		}
	}
	return pickup, dropoff
}
