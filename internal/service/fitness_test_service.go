package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/trakfit-api/internal/fitness"
	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
)

type fitnessTestRepository interface {
	Create(ctx context.Context, test *models.FitnessTest) error
	Update(ctx context.Context, test *models.FitnessTest) error
	UpdateRemark(ctx context.Context, id, remark string, createdAt time.Time) error
	FindByID(ctx context.Context, id string) (*models.FitnessTest, error)
	ListByStudent(ctx context.Context, studentID string, filter models.FitnessTestFilter) ([]models.FitnessTest, error)
	CountPostTests(ctx context.Context, studentID string) (int, error)
	ListPostTestsOrdered(ctx context.Context, studentID string) ([]models.FitnessTest, error)
}

type testStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	TouchLastDataUpdate(ctx context.Context, userID string, ts time.Time) error
	SetPreTestPending(ctx context.Context, userID string, pending bool) error
}

// SubmitTestRequest captures one measurement session. Ranges mirror the
// capture form limits.
type SubmitTestRequest struct {
	HeightCm      float64    `json:"height_cm" validate:"required,gte=100,lte=250"`
	WeightKg      float64    `json:"weight_kg" validate:"required,gte=30,lte=200"`
	VO2DistanceM  float64    `json:"vo2_distance_m" validate:"required,gte=500,lte=5000"`
	FlexibilityCm float64    `json:"flexibility_cm" validate:"gte=-20,lte=50"`
	StrengthReps  int        `json:"strength_reps" validate:"gte=0,lte=200"`
	AgilitySec    float64    `json:"agility_sec" validate:"required,gte=5,lte=60"`
	SpeedSec      float64    `json:"speed_sec" validate:"required,gte=4,lte=20"`
	EnduranceTime string     `json:"endurance_time" validate:"required"`
	TakenAt       *time.Time `json:"taken_at,omitempty"`
}

// RemarkRequest attaches teacher feedback to a test record.
type RemarkRequest struct {
	TestID string `json:"test_id" validate:"required"`
	Remark string `json:"remark" validate:"required"`
}

// RemarkResponse echoes the stored remark.
type RemarkResponse struct {
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// FitnessTestService owns the test ledger use cases and the change
// notification hook that fires on every save.
type FitnessTestService struct {
	tests     fitnessTestRepository
	students  testStudentRepository
	activity  activityWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFitnessTestService constructs the service.
func NewFitnessTestService(tests fitnessTestRepository, students testStudentRepository, activity activityWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *FitnessTestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitnessTestService{tests: tests, students: students, activity: activity, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Submit records a new pre or post test for the student owning userID.
func (s *FitnessTestService) Submit(ctx context.Context, userID string, testType models.TestType, req SubmitTestRequest) (*models.FitnessTest, error) {
	if !testType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown test type")
	}

	student, err := s.loadStudent(ctx, userID)
	if err != nil {
		return nil, err
	}

	test, err := s.buildTest(student.UserID, testType, req)
	if err != nil {
		return nil, err
	}

	if err := s.tests.Create(ctx, test); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save fitness test")
	}

	s.afterSave(ctx, student, test, true)
	return test, nil
}

// SubmitRegistrationPreTest records the optional pre test offered right after
// registration. It is gated by the student's pre_test_pending flag; skip
// clears the flag without creating a record.
func (s *FitnessTestService) SubmitRegistrationPreTest(ctx context.Context, userID string, req *SubmitTestRequest) (*models.FitnessTest, error) {
	student, err := s.loadStudent(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !student.PreTestPending {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "registration pre-test step is not available")
	}

	var test *models.FitnessTest
	if req != nil {
		test, err = s.buildTest(student.UserID, models.TestTypePre, *req)
		if err != nil {
			return nil, err
		}
		if err := s.tests.Create(ctx, test); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save fitness test")
		}
	}

	if err := s.students.SetPreTestPending(ctx, student.UserID, false); err != nil {
		s.logger.Warn("failed to clear pre-test pending flag", zap.String("student", student.StudentNo), zap.Error(err))
	}

	if test != nil {
		s.afterSave(ctx, student, test, true)
	}
	return test, nil
}

// Update corrects an existing post test in place. Students may only edit
// their own records; pre tests are rejected. Staff can edit any record.
func (s *FitnessTestService) Update(ctx context.Context, userID string, staff bool, testID string, req SubmitTestRequest) (*models.FitnessTest, error) {
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test record")
	}

	if !staff && test.StudentID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "test record belongs to another student")
	}
	if test.TestType == models.TestTypePre && !staff {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "pre-tests cannot be edited")
	}

	updated, err := s.buildTest(test.StudentID, test.TestType, req)
	if err != nil {
		return nil, err
	}
	updated.ID = test.ID
	updated.CreatedAt = test.CreatedAt
	updated.Remarks = test.Remarks
	updated.RemarksCreatedAt = test.RemarksCreatedAt
	if req.TakenAt == nil {
		updated.TakenAt = test.TakenAt
	}

	if err := s.tests.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fitness test")
	}

	student, err := s.loadStudent(ctx, test.StudentID)
	if err == nil {
		s.afterSave(ctx, student, updated, false)
	}
	return updated, nil
}

// AddRemark stores teacher feedback on a test record.
func (s *FitnessTestService) AddRemark(ctx context.Context, req RemarkRequest) (*RemarkResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remark payload")
	}

	if _, err := s.tests.FindByID(ctx, req.TestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test record")
	}

	createdAt := s.now().UTC()
	if err := s.tests.UpdateRemark(ctx, req.TestID, req.Remark, createdAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save remark")
	}

	return &RemarkResponse{Body: req.Remark, CreatedAt: createdAt}, nil
}

// History lists a student's records filtered by type and date range.
func (s *FitnessTestService) History(ctx context.Context, studentID string, filter models.FitnessTestFilter) ([]models.FitnessTest, error) {
	tests, err := s.tests.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fitness tests")
	}
	return tests, nil
}

func (s *FitnessTestService) loadStudent(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

func (s *FitnessTestService) buildTest(studentID string, testType models.TestType, req SubmitTestRequest) (*models.FitnessTest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test payload")
	}

	minutes, seconds, err := fitness.ParseEndurance(req.EnduranceTime)
	if err != nil {
		return nil, err
	}

	test := &models.FitnessTest{
		StudentID:        studentID,
		TestType:         testType,
		HeightCm:         &req.HeightCm,
		WeightKg:         &req.WeightKg,
		VO2DistanceM:     &req.VO2DistanceM,
		FlexibilityCm:    &req.FlexibilityCm,
		StrengthReps:     &req.StrengthReps,
		AgilitySec:       &req.AgilitySec,
		SpeedSec:         &req.SpeedSec,
		EnduranceMinutes: &minutes,
		EnduranceSeconds: &seconds,
	}
	if req.TakenAt != nil {
		test.TakenAt = req.TakenAt.UTC()
	}
	return test, nil
}

// afterSave is the change-notification hook: it stamps the student's
// last-data-update marker and appends one activity note per save. It runs on
// every write, so re-saving an unchanged record still produces a note. The
// post-test ordinal is read back without locking; concurrent writers may
// observe duplicate ordinals, which matches the accepted behaviour.
func (s *FitnessTestService) afterSave(ctx context.Context, student *models.Student, test *models.FitnessTest, created bool) {
	now := s.now().UTC()
	if err := s.students.TouchLastDataUpdate(ctx, student.UserID, now); err != nil {
		s.logger.Warn("failed to touch last data update", zap.String("student", student.StudentNo), zap.Error(err))
	}

	body := s.composeNote(ctx, student, test, created)
	if s.activity != nil {
		if err := s.activity.Create(ctx, &models.ActivityNote{StudentID: student.UserID, Body: body}); err != nil {
			s.logger.Warn("failed to append activity note", zap.String("student", student.StudentNo), zap.Error(err))
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, "dash:*")
	}
}

func (s *FitnessTestService) composeNote(ctx context.Context, student *models.Student, test *models.FitnessTest, created bool) string {
	name := student.FullName()
	pronoun := student.Pronoun()

	if test.TestType == models.TestTypePre {
		if created {
			return fmt.Sprintf("%s created %s pre-test", name, pronoun)
		}
		return fmt.Sprintf("%s updated %s pre-test", name, pronoun)
	}

	if created {
		count, err := s.tests.CountPostTests(ctx, student.UserID)
		if err != nil {
			s.logger.Warn("failed to count post tests", zap.Error(err))
			count = 1
		}
		return fmt.Sprintf("%s created %s post test #%d", name, pronoun, count)
	}

	// Resolve the record's position among the student's post tests by
	// taken_at order; fall back to 1 when the id is not found.
	position := 1
	posts, err := s.tests.ListPostTestsOrdered(ctx, student.UserID)
	if err != nil {
		s.logger.Warn("failed to list post tests", zap.Error(err))
	} else {
		for idx, post := range posts {
			if post.ID == test.ID {
				position = idx + 1
				break
			}
		}
	}
	return fmt.Sprintf("%s updated %s post test #%d", name, pronoun, position)
}
