package fitness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestBMI(t *testing.T) {
	bmi, ok := BMI(fptr(170), fptr(70))
	require.True(t, ok)
	assert.InDelta(t, 24.22, bmi, 0.01)
	assert.Equal(t, StatusNormal, BMIStatus(bmi))
}

func TestBMIMissingInput(t *testing.T) {
	_, ok := BMI(nil, fptr(70))
	assert.False(t, ok)
	_, ok = BMI(fptr(170), nil)
	assert.False(t, ok)
}

func TestBMIStatusBoundaries(t *testing.T) {
	assert.Equal(t, StatusUnderweight, BMIStatus(18.49))
	assert.Equal(t, StatusNormal, BMIStatus(18.5))
	assert.Equal(t, StatusNormal, BMIStatus(24.99))
	assert.Equal(t, StatusOverweight, BMIStatus(25))
	assert.Equal(t, StatusOverweight, BMIStatus(29.99))
	assert.Equal(t, StatusObese, BMIStatus(30))
}

func TestVO2Max(t *testing.T) {
	vo2, ok := VO2Max(fptr(2000))
	require.True(t, ok)
	assert.InDelta(t, 33.43, vo2, 0.01)

	_, ok = VO2Max(nil)
	assert.False(t, ok)
}

func TestEnduranceDecimal(t *testing.T) {
	cases := []struct {
		minutes, seconds int
		expected         float64
	}{
		{9, 30, 9.5},
		{8, 45, 8.75},
		{15, 15, 15.25},
		{10, 0, 10.0},
	}
	for _, tc := range cases {
		decimal, ok := EnduranceDecimal(iptr(tc.minutes), iptr(tc.seconds))
		require.True(t, ok)
		assert.Equal(t, tc.expected, decimal)
	}

	_, ok := EnduranceDecimal(iptr(9), nil)
	assert.False(t, ok)
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"09:30", "10:00", "8:45", "15:15", "29:59"} {
		minutes, seconds, err := ParseEndurance(raw)
		require.NoError(t, err, raw)
		display, ok := FormatEndurance(&minutes, &seconds)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("%02d:%02d", minutes, seconds), display)
	}
}

func TestParseEnduranceRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "930", "9:3", "9:300", "9:30:00", "ab:cd", "10:65"} {
		_, _, err := ParseEndurance(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseEnduranceRejectsOutOfWindow(t *testing.T) {
	_, _, err := ParseEndurance("3:59")
	assert.Error(t, err)
	_, _, err = ParseEndurance("30:01")
	assert.Error(t, err)

	_, _, err = ParseEndurance("4:00")
	assert.NoError(t, err)
	_, _, err = ParseEndurance("30:00")
	assert.NoError(t, err)
}

func TestEnduranceImprovement(t *testing.T) {
	preSec, ok := EnduranceTotalSeconds(iptr(10), iptr(0))
	require.True(t, ok)
	postSec, ok := EnduranceTotalSeconds(iptr(12), iptr(30))
	require.True(t, ok)

	improvement, ok := Improvement(float64(preSec), float64(postSec), true)
	require.True(t, ok)
	assert.Equal(t, 25.0, improvement)
}

func TestImprovementDirection(t *testing.T) {
	// Agility: dropping from 12s to 10s is a 16.67% improvement.
	improvement, ok := Improvement(12, 10, false)
	require.True(t, ok)
	assert.InDelta(t, 16.67, improvement, 0.01)

	_, ok = Improvement(0, 10, true)
	assert.False(t, ok)
}
