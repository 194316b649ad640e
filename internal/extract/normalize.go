package extract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reSpaceRun   = regexp.MustCompile(`[ \t]+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reHyphenBrk  = regexp.MustCompile(`-\n`)
)

// Normalize canonicalizes raw OCR/PDF text: unix line endings, single spaces,
// at most one blank line in a row, no surrounding whitespace, and words split
// by a hyphenated line break joined back together.
//
// Joining a hyphen break can expose a new space run or blank-line run, so the
// passes repeat until the text stops changing. Every pass is non-growing, so
// this terminates quickly and the result is a fixed point.
func Normalize(raw string) string {
	s := raw
	for {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reSpaceRun.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return reHyphenBrk.ReplaceAllString(s, "")
}

// Lines splits normalized text into trimmed, non-empty lines.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
