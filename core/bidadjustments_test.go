package core

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestClampBid(t *testing.T) {
	tests := []struct {
		name     string
		bid      *float64
		expected *float64
	}{
		{"positive bid unchanged", bidPtr(0.75), bidPtr(0.75)},
		{"zero bid unchanged", bidPtr(0.0), bidPtr(0.0)},
		{"negative bid clamped", bidPtr(-0.25), bidPtr(0.0)},
		{"large negative clamped", bidPtr(-100), bidPtr(0.0)},
		{"NaN clamped", bidPtr(math.NaN()), bidPtr(0.0)},
		{"negative infinity clamped", bidPtr(math.Inf(-1)), bidPtr(0.0)},
		{"declined stays declined", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClampBid(tt.bid)
			if tt.expected == nil {
				check.Nil(t, result)
				return
			}
			check.NotNil(t, result)
			check.Equal(t, *tt.expected, *result)
		})
	}
}

func TestClampBids_DoesNotAliasInput(t *testing.T) {
	original := []*float64{bidPtr(0.5), bidPtr(-1), nil}

	clamped := clampBids(original)
	*original[0] = 9.0

	check.Equal(t, 0.5, *clamped[0])
	check.Equal(t, 0.0, *clamped[1])
	check.Nil(t, clamped[2])
	check.Equal(t, -1.0, *original[1]) // Original bid should be unchanged
}
