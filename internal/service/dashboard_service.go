package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trakfit-api/internal/dto"
	"github.com/noah-isme/trakfit-api/internal/fitness"
	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
	"github.com/noah-isme/trakfit-api/pkg/export"
)

type dashboardTestRepository interface {
	ListByStudent(ctx context.Context, studentID string, filter models.FitnessTestFilter) ([]models.FitnessTest, error)
}

type dashboardStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error)
	ListAll(ctx context.Context) ([]models.Student, error)
}

type activityLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.ActivityNote, error)
}

const classStatsCacheKey = "dash:teacher:class"

// DashboardService composes the per-request aggregations behind the student
// and teacher views. All derived values are recomputed from the stored raw
// fields on every request; only the class-wide statistics may be cached.
type DashboardService struct {
	tests    dashboardTestRepository
	students dashboardStudentRepository
	activity activityLister
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(tests dashboardTestRepository, students dashboardStudentRepository, activity activityLister, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{tests: tests, students: students, activity: activity, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// StudentDashboard builds the student landing view: the latest record
// overall, the latest pre and post records, and pre/post improvements.
func (s *DashboardService) StudentDashboard(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error) {
	student, err := s.loadStudentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tests, err := s.tests.ListByStudent(ctx, student.UserID, models.FitnessTestFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fitness tests")
	}

	resp := &dto.StudentDashboardResponse{Student: *student}
	latest, latestPre, latestPost := splitLatest(tests)
	resp.Latest = buildView(latest)
	resp.LatestPre = buildView(latestPre)
	resp.LatestPost = buildView(latestPost)
	resp.Improvements = improvements(latestPre, latestPost)
	return resp, nil
}

// StudentHistory lists a student's records newest first, each compared to
// the chronologically previous test regardless of type.
func (s *DashboardService) StudentHistory(ctx context.Context, userID string, filter models.FitnessTestFilter) (*dto.StudentHistoryResponse, error) {
	student, err := s.loadStudentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.historyEntries(ctx, student.UserID, filter)
	if err != nil {
		return nil, err
	}
	return &dto.StudentHistoryResponse{Student: *student, Tests: entries}, nil
}

// TeacherDashboard returns class-wide statistics plus the recent activity
// feed. Statistics may come from cache; the second return reports a hit.
func (s *DashboardService) TeacherDashboard(ctx context.Context, activityLimit int) (*dto.TeacherDashboardResponse, bool, error) {
	var resp dto.TeacherDashboardResponse
	cacheHit := false
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, classStatsCacheKey, &resp)
		if err == nil && hit {
			cacheHit = true
		}
	}

	if !cacheHit {
		stats, total, err := s.classStatistics(ctx)
		if err != nil {
			return nil, false, err
		}
		resp.TotalStudents = total
		resp.Averages = stats
		if s.cache != nil {
			s.cache.Set(ctx, classStatsCacheKey, resp, s.cacheTTL)
		}
	}

	if s.activity != nil {
		notes, err := s.activity.ListRecent(ctx, activityLimit)
		if err != nil {
			s.logger.Warn("failed to load activity feed", zap.Error(err))
		} else {
			resp.RecentActivity = notes
		}
	}

	return &resp, cacheHit, nil
}

// TeacherStudentProfile drills into one student by student number.
func (s *DashboardService) TeacherStudentProfile(ctx context.Context, studentNo string) (*dto.TeacherStudentProfileResponse, error) {
	student, err := s.students.FindByStudentNo(ctx, studentNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	tests, err := s.tests.ListByStudent(ctx, student.UserID, models.FitnessTestFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fitness tests")
	}

	_, latestPre, latestPost := splitLatest(tests)
	entries := entriesWithComparisons(tests)

	return &dto.TeacherStudentProfileResponse{
		Student:      *student,
		LatestPre:    buildView(latestPre),
		LatestPost:   buildView(latestPost),
		Improvements: improvements(latestPre, latestPost),
		History:      entries,
	}, nil
}

// ExportClassStatistics renders the class statistics table as CSV or PDF.
func (s *DashboardService) ExportClassStatistics(ctx context.Context, format string) ([]byte, string, string, error) {
	stats, _, err := s.classStatistics(ctx)
	if err != nil {
		return nil, "", "", err
	}

	dataset := export.Dataset{Headers: []string{"Metric", "Pre Average", "Post Average"}}
	for _, row := range stats {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Metric":       row.Metric,
			"Pre Average":  fmt.Sprintf("%.2f", row.PreAverage),
			"Post Average": fmt.Sprintf("%.2f", row.PostAverage),
		})
	}

	switch strings.ToLower(format) {
	case "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "class-statistics.csv", "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, "Class Fitness Statistics")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "class-statistics.pdf", "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *DashboardService) loadStudentByUserID(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

func (s *DashboardService) historyEntries(ctx context.Context, studentID string, filter models.FitnessTestFilter) ([]dto.HistoryEntry, error) {
	tests, err := s.tests.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fitness tests")
	}
	return entriesWithComparisons(tests), nil
}

// classStatistics sums each metric's latest pre and post values across every
// student, counting missing values as zero, and divides by the total student
// count. Zero students divide by one. The skew for partially tested classes
// is intentional.
func (s *DashboardService) classStatistics(ctx context.Context) ([]dto.ClassMetricAverage, int, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	metricNames := []string{"bmi", "vo2_max", "flexibility_cm", "strength_reps", "agility_sec", "speed_sec", "endurance_min"}
	preSums := make(map[string]float64, len(metricNames))
	postSums := make(map[string]float64, len(metricNames))

	for _, student := range students {
		tests, err := s.tests.ListByStudent(ctx, student.UserID, models.FitnessTestFilter{})
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fitness tests")
		}
		_, pre, post := splitLatest(tests)
		accumulate(preSums, pre)
		accumulate(postSums, post)
	}

	divisor := float64(len(students))
	if divisor == 0 {
		divisor = 1
	}

	averages := make([]dto.ClassMetricAverage, 0, len(metricNames))
	for _, name := range metricNames {
		averages = append(averages, dto.ClassMetricAverage{
			Metric:      name,
			PreAverage:  preSums[name] / divisor,
			PostAverage: postSums[name] / divisor,
		})
	}
	return averages, len(students), nil
}

func accumulate(sums map[string]float64, test *models.FitnessTest) {
	if test == nil {
		return
	}
	if bmi, ok := fitness.BMI(test.HeightCm, test.WeightKg); ok {
		sums["bmi"] += bmi
	}
	if vo2, ok := fitness.VO2Max(test.VO2DistanceM); ok {
		sums["vo2_max"] += vo2
	}
	if test.FlexibilityCm != nil {
		sums["flexibility_cm"] += *test.FlexibilityCm
	}
	if test.StrengthReps != nil {
		sums["strength_reps"] += float64(*test.StrengthReps)
	}
	if test.AgilitySec != nil {
		sums["agility_sec"] += *test.AgilitySec
	}
	if test.SpeedSec != nil {
		sums["speed_sec"] += *test.SpeedSec
	}
	if decimal, ok := fitness.EnduranceDecimal(test.EnduranceMinutes, test.EnduranceSeconds); ok {
		sums["endurance_min"] += decimal
	}
}

// splitLatest picks the latest record overall plus the latest of each type
// from a list already ordered by taken_at descending.
func splitLatest(tests []models.FitnessTest) (latest, latestPre, latestPost *models.FitnessTest) {
	for i := range tests {
		test := &tests[i]
		if latest == nil {
			latest = test
		}
		if latestPre == nil && test.TestType == models.TestTypePre {
			latestPre = test
		}
		if latestPost == nil && test.TestType == models.TestTypePost {
			latestPost = test
		}
		if latest != nil && latestPre != nil && latestPost != nil {
			break
		}
	}
	return latest, latestPre, latestPost
}

func buildView(test *models.FitnessTest) *dto.TestView {
	if test == nil {
		return nil
	}
	view := &dto.TestView{FitnessTest: *test}
	if bmi, ok := fitness.BMI(test.HeightCm, test.WeightKg); ok {
		view.BMI = &bmi
		view.BMIStatus = fitness.BMIStatus(bmi)
	}
	if vo2, ok := fitness.VO2Max(test.VO2DistanceM); ok {
		view.VO2Max = &vo2
	}
	if decimal, ok := fitness.EnduranceDecimal(test.EnduranceMinutes, test.EnduranceSeconds); ok {
		view.EnduranceDecimal = &decimal
	}
	if display, ok := fitness.FormatEndurance(test.EnduranceMinutes, test.EnduranceSeconds); ok {
		view.EnduranceDisplay = display
	}
	return view
}

// entriesWithComparisons decorates a descending-taken_at list so that each
// record carries deltas against the next record in the list, i.e. the test
// chronologically immediately prior, regardless of type. The oldest record
// has no comparison.
func entriesWithComparisons(tests []models.FitnessTest) []dto.HistoryEntry {
	entries := make([]dto.HistoryEntry, 0, len(tests))
	for i := range tests {
		entry := dto.HistoryEntry{TestView: *buildView(&tests[i])}
		if i+1 < len(tests) {
			entry.Comparison = deltas(&tests[i], &tests[i+1])
		}
		entries = append(entries, entry)
	}
	return entries
}

func deltas(current, previous *models.FitnessTest) []dto.MetricDelta {
	var result []dto.MetricDelta

	add := func(metric string, cur, prev float64) {
		result = append(result, dto.MetricDelta{Metric: metric, Current: cur, Previous: prev, Delta: cur - prev})
	}

	if curBMI, ok := fitness.BMI(current.HeightCm, current.WeightKg); ok {
		if prevBMI, ok := fitness.BMI(previous.HeightCm, previous.WeightKg); ok {
			add("bmi", curBMI, prevBMI)
		}
	}
	if curVO2, ok := fitness.VO2Max(current.VO2DistanceM); ok {
		if prevVO2, ok := fitness.VO2Max(previous.VO2DistanceM); ok {
			add("vo2_max", curVO2, prevVO2)
		}
	}
	if current.FlexibilityCm != nil && previous.FlexibilityCm != nil {
		add("flexibility_cm", *current.FlexibilityCm, *previous.FlexibilityCm)
	}
	if current.StrengthReps != nil && previous.StrengthReps != nil {
		add("strength_reps", float64(*current.StrengthReps), float64(*previous.StrengthReps))
	}
	if current.AgilitySec != nil && previous.AgilitySec != nil {
		add("agility_sec", *current.AgilitySec, *previous.AgilitySec)
	}
	if current.SpeedSec != nil && previous.SpeedSec != nil {
		add("speed_sec", *current.SpeedSec, *previous.SpeedSec)
	}
	if curSec, ok := fitness.EnduranceTotalSeconds(current.EnduranceMinutes, current.EnduranceSeconds); ok {
		if prevSec, ok := fitness.EnduranceTotalSeconds(previous.EnduranceMinutes, previous.EnduranceSeconds); ok {
			add("endurance_sec", float64(curSec), float64(prevSec))
		}
	}
	return result
}

// improvements computes pre/post percentage deltas per metric, only when
// both sides carry the value. Flexibility, strength and endurance seconds
// count up; agility and speed count down.
func improvements(pre, post *models.FitnessTest) []dto.Improvement {
	if pre == nil || post == nil {
		return nil
	}

	var result []dto.Improvement
	add := func(metric string, preVal, postVal float64, higherIsBetter bool) {
		if percent, ok := fitness.Improvement(preVal, postVal, higherIsBetter); ok {
			result = append(result, dto.Improvement{Metric: metric, Pre: preVal, Post: postVal, Percent: percent})
		}
	}

	if pre.FlexibilityCm != nil && post.FlexibilityCm != nil {
		add("flexibility_cm", *pre.FlexibilityCm, *post.FlexibilityCm, true)
	}
	if pre.StrengthReps != nil && post.StrengthReps != nil {
		add("strength_reps", float64(*pre.StrengthReps), float64(*post.StrengthReps), true)
	}
	if preSec, ok := fitness.EnduranceTotalSeconds(pre.EnduranceMinutes, pre.EnduranceSeconds); ok {
		if postSec, ok := fitness.EnduranceTotalSeconds(post.EnduranceMinutes, post.EnduranceSeconds); ok {
			add("endurance_sec", float64(preSec), float64(postSec), true)
		}
	}
	if pre.AgilitySec != nil && post.AgilitySec != nil {
		add("agility_sec", *pre.AgilitySec, *post.AgilitySec, false)
	}
	if pre.SpeedSec != nil && post.SpeedSec != nil {
		add("speed_sec", *pre.SpeedSec, *post.SpeedSec, false)
	}
	return result
}
