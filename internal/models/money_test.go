package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		want   int64
		ok     bool
	}{
		{"whole", 250.0, 25000, true},
		{"two decimals", 250.75, 25075, true},
		{"one decimal", 0.5, 50, true},
		{"zero", 0, 0, true},
		{"sub-cent precision", 10.001, 0, false},
		{"negative two decimals", -3.25, -325, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToMinorUnits(tc.amount)
			if !tc.ok {
				require.ErrorIs(t, err, ErrAmountPrecision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFromMinorUnitsRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 100, 25075, 99999999} {
		major := FromMinorUnits(minor)
		back, err := ToMinorUnits(major)
		require.NoError(t, err)
		assert.Equal(t, minor, back)
	}
}
