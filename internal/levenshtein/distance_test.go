package levenshtein_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailvalidator/internal/levenshtein"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"outlook.com", "outlook.com", 0},
		{"hotmial.com", "hotmail.com", 2},
		{"yaho.com", "yahoo.com", 1},
		{"gmx.dee", "gmx.de", 1},
		{"kitten", "sitting", 3},
		{"münchen.de", "munchen.de", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshtein.Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, levenshtein.Distance(tt.b, tt.a), "symmetric")
		})
	}
}

func TestClosest(t *testing.T) {
	providers := []string{"gmail.com", "hotmail.com", "yahoo.com"}

	assert.Equal(t, "gmail.com", levenshtein.Closest("gmal.com", providers, 2))
	assert.Equal(t, "hotmail.com", levenshtein.Closest("hotmial.com", providers, 2))
	assert.Empty(t, levenshtein.Closest("gmail.com", providers, 2), "exact match needs no suggestion")
	assert.Empty(t, levenshtein.Closest("example.org", providers, 2))
	assert.Empty(t, levenshtein.Closest("gmal.com", providers, 0))
}
