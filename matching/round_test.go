package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"Half rounds down to even", 50.5, 50},
		{"Half rounds up to even", 51.5, 52},
		{"Half below fifty", 49.5, 50},
		{"Half near zero", 0.5, 0},
		{"Half near the top", 99.5, 100},
		{"Just below half", 50.49, 50},
		{"Just above half", 50.51, 51},
		{"Repeating fraction", 33.333, 33},
		{"Clamped high", 105, 100},
		{"Clamped low", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundScore(tt.in))
		})
	}
}
