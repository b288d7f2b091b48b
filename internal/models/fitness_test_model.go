package models

import "time"

// TestType distinguishes the two fitness test categories. The pre test is
// conventionally singular per student (latest by taken_at wins), while post
// tests accumulate over the term.
type TestType string

const (
	TestTypePre  TestType = "pre"
	TestTypePost TestType = "post"
)

// Valid reports whether the value is one of the known test types.
func (t TestType) Valid() bool {
	return t == TestTypePre || t == TestTypePost
}

// FitnessTest is one measurement session for a student. Every metric column
// is independently nullable; derived values (BMI, VO2 max, endurance decimal)
// are computed on read and never persisted.
type FitnessTest struct {
	ID               string     `db:"id" json:"id"`
	StudentID        string     `db:"student_id" json:"student_id"`
	TestType         TestType   `db:"test_type" json:"test_type"`
	HeightCm         *float64   `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg         *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	VO2DistanceM     *float64   `db:"vo2_distance_m" json:"vo2_distance_m,omitempty"`
	FlexibilityCm    *float64   `db:"flexibility_cm" json:"flexibility_cm,omitempty"`
	StrengthReps     *int       `db:"strength_reps" json:"strength_reps,omitempty"`
	AgilitySec       *float64   `db:"agility_sec" json:"agility_sec,omitempty"`
	SpeedSec         *float64   `db:"speed_sec" json:"speed_sec,omitempty"`
	EnduranceMinutes *int       `db:"endurance_minutes" json:"endurance_minutes,omitempty"`
	EnduranceSeconds *int       `db:"endurance_seconds" json:"endurance_seconds,omitempty"`
	TakenAt          time.Time  `db:"taken_at" json:"taken_at"`
	Remarks          *string    `db:"remarks" json:"remarks,omitempty"`
	RemarksCreatedAt *time.Time `db:"remarks_created_at" json:"remarks_created_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// FitnessTestFilter narrows a student's test history.
type FitnessTestFilter struct {
	TestType *TestType
	From     *time.Time
	To       *time.Time
}
