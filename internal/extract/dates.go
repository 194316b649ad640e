package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var reNumericDate = regexp.MustCompile(`^(\d{1,2})([/-])(\d{1,2})([/-])(\d{2}|\d{4})$`)

var monthNames = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for mo := time.January; mo <= time.December; mo++ {
		full := strings.ToLower(mo.String())
		m[full] = mo
		m[full[:3]] = mo
	}
	return m
}()

// parseNumericDate accepts M/D/YYYY, M/D/YY and the same with dashes. The two
// separators must agree. Two-digit years pivot at 69 (69-99 -> 19xx).
func parseNumericDate(s string) (time.Time, bool) {
	m := reNumericDate.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || m[2] != m[4] {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[5])
	if len(m[5]) == 2 {
		if year >= 69 {
			year += 1900
		} else {
			year += 2000
		}
	}
	return buildDate(year, month, day)
}

// parseWordedDate accepts "Jun 16, 2025" and "June 16, 2025".
func parseWordedDate(monthWord, dayStr, yearStr string) (time.Time, bool) {
	mo, ok := monthNames[strings.ToLower(monthWord)]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	return buildDate(year, int(mo), day)
}

func buildDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween returns whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
