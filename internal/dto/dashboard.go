package dto

import "github.com/noah-isme/trakfit-api/internal/models"

// TestView decorates a ledger record with its derived metrics. Derived
// values are computed on read and omitted when the source fields are null.
type TestView struct {
	models.FitnessTest
	BMI              *float64 `json:"bmi,omitempty"`
	BMIStatus        string   `json:"bmi_status,omitempty"`
	VO2Max           *float64 `json:"vo2_max,omitempty"`
	EnduranceDecimal *float64 `json:"endurance_decimal,omitempty"`
	EnduranceDisplay string   `json:"endurance_display,omitempty"`
}

// Improvement is the pre/post percentage delta for one metric. Positive
// always means "better": lower-is-better metrics invert the numerator.
type Improvement struct {
	Metric  string  `json:"metric"`
	Pre     float64 `json:"pre"`
	Post    float64 `json:"post"`
	Percent float64 `json:"percent"`
}

// MetricDelta compares a record against the chronologically previous test.
type MetricDelta struct {
	Metric   string  `json:"metric"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Delta    float64 `json:"delta"`
}

// HistoryEntry pairs a record with its comparison to the previous test.
type HistoryEntry struct {
	TestView
	Comparison []MetricDelta `json:"comparison,omitempty"`
}

// StudentDashboardResponse backs the student's landing view.
type StudentDashboardResponse struct {
	Student      models.Student `json:"student"`
	Latest       *TestView      `json:"latest,omitempty"`
	LatestPre    *TestView      `json:"latest_pre,omitempty"`
	LatestPost   *TestView      `json:"latest_post,omitempty"`
	Improvements []Improvement  `json:"improvements,omitempty"`
}

// StudentHistoryResponse backs the student history view.
type StudentHistoryResponse struct {
	Student models.Student `json:"student"`
	Tests   []HistoryEntry `json:"tests"`
}

// ClassMetricAverage is one row of the teacher class statistics table.
// Sums treat missing values as zero and divide by the total student count,
// so classes with incomplete testing read low by construction.
type ClassMetricAverage struct {
	Metric      string  `json:"metric"`
	PreAverage  float64 `json:"pre_average"`
	PostAverage float64 `json:"post_average"`
}

// TeacherDashboardResponse backs the staff landing view.
type TeacherDashboardResponse struct {
	TotalStudents  int                   `json:"total_students"`
	Averages       []ClassMetricAverage  `json:"averages"`
	RecentActivity []models.ActivityNote `json:"recent_activity,omitempty"`
}

// TeacherStudentProfileResponse is the staff per-student drill-down.
type TeacherStudentProfileResponse struct {
	Student      models.Student `json:"student"`
	LatestPre    *TestView      `json:"latest_pre,omitempty"`
	LatestPost   *TestView      `json:"latest_post,omitempty"`
	Improvements []Improvement  `json:"improvements,omitempty"`
	History      []HistoryEntry `json:"history"`
}
