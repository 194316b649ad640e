package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumericDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"09/30/2025", "2025-09-30", true},
		{"9/3/25", "2025-09-03", true},
		{"9-3-25", "2025-09-03", true},
		{"12/31/99", "1999-12-31", true},
		{"1/1/68", "2068-01-01", true},
		{"1/1/69", "1969-01-01", true},
		{"02/29/2024", "2024-02-29", true},
		{"02/30/2025", "", false},
		{"13/01/2025", "", false},
		{"9/3-25", "", false},
		{"9/3/025", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumericDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format(isoDate))
			}
		})
	}
}

func TestParseWordedDate(t *testing.T) {
	got, ok := parseWordedDate("Jun", "16", "2025")
	assert.True(t, ok)
	assert.Equal(t, "2025-06-16", got.Format(isoDate))

	got, ok = parseWordedDate("September", "3", "2024")
	assert.True(t, ok)
	assert.Equal(t, "2024-09-03", got.Format(isoDate))

	_, ok = parseWordedDate("Sept", "3", "2024")
	assert.False(t, ok)
	_, ok = parseWordedDate("Feb", "31", "2024")
	assert.False(t, ok)
}
