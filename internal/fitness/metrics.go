// Package fitness holds the derived-metric formulas shared by the dashboard
// and profile views. Everything here is a pure function over raw measurement
// fields; no rounding is applied, callers round at presentation time.
package fitness

import (
	"fmt"
	"regexp"
	"strconv"

	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
)

// BMI status boundaries.
const (
	StatusUnderweight = "Underweight"
	StatusNormal      = "Normal"
	StatusOverweight  = "Overweight"
	StatusObese       = "Obese"
)

// BMI computes weight(kg) / height(m)^2 from nullable inputs. The second
// return value is false when either input is missing.
func BMI(heightCm, weightKg *float64) (float64, bool) {
	if heightCm == nil || weightKg == nil || *heightCm == 0 {
		return 0, false
	}
	heightM := *heightCm / 100
	return *weightKg / (heightM * heightM), true
}

// BMIStatus classifies a BMI value: <18.5 Underweight, [18.5,25) Normal,
// [25,30) Overweight, >=30 Obese.
func BMIStatus(bmi float64) string {
	switch {
	case bmi < 18.5:
		return StatusUnderweight
	case bmi < 25:
		return StatusNormal
	case bmi < 30:
		return StatusOverweight
	default:
		return StatusObese
	}
}

// VO2Max estimates maximal oxygen uptake from a 12-minute run distance using
// the Cooper formula (d - 504.9) / 44.73.
func VO2Max(distanceM *float64) (float64, bool) {
	if distanceM == nil {
		return 0, false
	}
	return (*distanceM - 504.9) / 44.73, true
}

// EnduranceDecimal converts an endurance time to decimal minutes
// (minutes + seconds/60) for charting and averaging.
func EnduranceDecimal(minutes, seconds *int) (float64, bool) {
	if minutes == nil || seconds == nil {
		return 0, false
	}
	return float64(*minutes) + float64(*seconds)/60, true
}

// EnduranceTotalSeconds flattens an endurance time to seconds for
// improvement comparisons.
func EnduranceTotalSeconds(minutes, seconds *int) (int, bool) {
	if minutes == nil || seconds == nil {
		return 0, false
	}
	return *minutes*60 + *seconds, true
}

// FormatEndurance renders a zero-padded "MM:SS" display string.
func FormatEndurance(minutes, seconds *int) (string, bool) {
	if minutes == nil || seconds == nil {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", *minutes, *seconds), true
}

var endurancePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Endurance time must fall inside the 12-minute-run capture window.
const (
	minEnduranceSeconds = 240  // 4:00
	maxEnduranceSeconds = 1800 // 30:00
)

// ParseEndurance validates and splits a "m:ss" time string. Minutes must be
// 0-99, seconds 00-59, and the total between 4:00 and 30:00.
func ParseEndurance(raw string) (minutes, seconds int, err error) {
	match := endurancePattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "endurance_time: format must be mm:ss (e.g., 12:30)")
	}

	minutes, _ = strconv.Atoi(match[1])
	seconds, _ = strconv.Atoi(match[2])

	if seconds > 59 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "endurance_time: seconds must be between 00-59")
	}

	total := minutes*60 + seconds
	if total < minEnduranceSeconds || total > maxEnduranceSeconds {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "endurance_time: time must be between 4:00 and 30:00")
	}

	return minutes, seconds, nil
}

// Improvement computes the pre/post percentage delta for a metric. Higher-is-
// better metrics (flexibility, strength, endurance seconds) use
// (post-pre)/pre*100; lower-is-better metrics (agility, speed) invert the
// numerator so that a reduction reads as a positive improvement.
func Improvement(pre, post float64, higherIsBetter bool) (float64, bool) {
	if pre == 0 {
		return 0, false
	}
	if higherIsBetter {
		return (post - pre) / pre * 100, true
	}
	return (pre - post) / pre * 100, true
}
