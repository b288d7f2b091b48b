package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
)

type mockTestRepo struct {
	tests     []*models.FitnessTest
	createErr error
}

func (m *mockTestRepo) Create(ctx context.Context, test *models.FitnessTest) error {
	if m.createErr != nil {
		return m.createErr
	}
	if test.ID == "" {
		test.ID = "t" + time.Now().Format("150405.000000000")
	}
	if test.TakenAt.IsZero() {
		test.TakenAt = time.Now().UTC()
	}
	m.tests = append(m.tests, test)
	return nil
}

func (m *mockTestRepo) Update(ctx context.Context, test *models.FitnessTest) error {
	for i, existing := range m.tests {
		if existing.ID == test.ID {
			m.tests[i] = test
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockTestRepo) UpdateRemark(ctx context.Context, id, remark string, createdAt time.Time) error {
	for _, existing := range m.tests {
		if existing.ID == id {
			existing.Remarks = &remark
			existing.RemarksCreatedAt = &createdAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockTestRepo) FindByID(ctx context.Context, id string) (*models.FitnessTest, error) {
	for _, existing := range m.tests {
		if existing.ID == id {
			copied := *existing
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTestRepo) ListByStudent(ctx context.Context, studentID string, filter models.FitnessTestFilter) ([]models.FitnessTest, error) {
	var out []models.FitnessTest
	for _, existing := range m.tests {
		if existing.StudentID != studentID {
			continue
		}
		if filter.TestType != nil && existing.TestType != *filter.TestType {
			continue
		}
		out = append(out, *existing)
	}
	return out, nil
}

func (m *mockTestRepo) CountPostTests(ctx context.Context, studentID string) (int, error) {
	count := 0
	for _, existing := range m.tests {
		if existing.StudentID == studentID && existing.TestType == models.TestTypePost {
			count++
		}
	}
	return count, nil
}

func (m *mockTestRepo) ListPostTestsOrdered(ctx context.Context, studentID string) ([]models.FitnessTest, error) {
	var out []models.FitnessTest
	for _, existing := range m.tests {
		if existing.StudentID == studentID && existing.TestType == models.TestTypePost {
			out = append(out, *existing)
		}
	}
	return out, nil
}

type mockStudentStore struct {
	student     *models.Student
	lastTouched *time.Time
	pendingSet  *bool
}

func (m *mockStudentStore) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.student == nil || m.student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	copied := *m.student
	return &copied, nil
}

func (m *mockStudentStore) TouchLastDataUpdate(ctx context.Context, userID string, ts time.Time) error {
	m.lastTouched = &ts
	return nil
}

func (m *mockStudentStore) SetPreTestPending(ctx context.Context, userID string, pending bool) error {
	m.pendingSet = &pending
	m.student.PreTestPending = pending
	return nil
}

func maleStudent() *models.Student {
	gender := "male"
	return &models.Student{
		UserID:      "u1",
		StudentNo:   "2024-001",
		FirstName:   "Juan",
		LastName:    "Dela Cruz",
		Age:         16,
		Gender:      &gender,
		SectionCode: "A",
		GroupCode:   "G1",
	}
}

func validSubmitRequest() SubmitTestRequest {
	return SubmitTestRequest{
		HeightCm:      170,
		WeightKg:      65,
		VO2DistanceM:  2000,
		FlexibilityCm: 25,
		StrengthReps:  30,
		AgilitySec:    12.5,
		SpeedSec:      8.2,
		EnduranceTime: "9:30",
	}
}

func newTestFitnessService(tests *mockTestRepo, students *mockStudentStore, activity *mockActivityWriter) *FitnessTestService {
	if activity == nil {
		activity = &mockActivityWriter{}
	}
	return NewFitnessTestService(tests, students, activity, nil, validator.New(), zap.NewNop())
}

func TestFitnessTestServiceSubmitPre(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	activity := &mockActivityWriter{}
	svc := newTestFitnessService(tests, students, activity)

	test, err := svc.Submit(context.Background(), "u1", models.TestTypePre, validSubmitRequest())
	require.NoError(t, err)
	require.NotNil(t, test)
	assert.Equal(t, models.TestTypePre, test.TestType)
	require.NotNil(t, test.EnduranceMinutes)
	assert.Equal(t, 9, *test.EnduranceMinutes)
	assert.Equal(t, 30, *test.EnduranceSeconds)

	require.NotNil(t, students.lastTouched)
	require.Len(t, activity.notes, 1)
	assert.Equal(t, "Juan Dela Cruz created his pre-test", activity.notes[0].Body)
}

func TestFitnessTestServiceSubmitPostOrdinal(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	activity := &mockActivityWriter{}
	svc := newTestFitnessService(tests, students, activity)

	_, err := svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)

	require.Len(t, activity.notes, 2)
	assert.Equal(t, "Juan Dela Cruz created his post test #1", activity.notes[0].Body)
	assert.Equal(t, "Juan Dela Cruz created his post test #2", activity.notes[1].Body)
}

func TestFitnessTestServiceSubmitUnknownGenderPronoun(t *testing.T) {
	tests := &mockTestRepo{}
	student := maleStudent()
	student.Gender = nil
	students := &mockStudentStore{student: student}
	activity := &mockActivityWriter{}
	svc := newTestFitnessService(tests, students, activity)

	_, err := svc.Submit(context.Background(), "u1", models.TestTypePre, validSubmitRequest())
	require.NoError(t, err)
	require.Len(t, activity.notes, 1)
	assert.Equal(t, "Juan Dela Cruz created his/her pre-test", activity.notes[0].Body)
}

func TestFitnessTestServiceSubmitRejectsBadEndurance(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	svc := newTestFitnessService(tests, students, nil)

	for _, raw := range []string{"9.30", "3:59", "30:01", "9:75", ""} {
		req := validSubmitRequest()
		req.EnduranceTime = raw
		_, err := svc.Submit(context.Background(), "u1", models.TestTypePre, req)
		require.Error(t, err, "endurance %q should be rejected", raw)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, tests.tests)
}

func TestFitnessTestServiceSubmitRejectsOutOfRange(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	svc := newTestFitnessService(tests, students, nil)

	req := validSubmitRequest()
	req.HeightCm = 99
	_, err := svc.Submit(context.Background(), "u1", models.TestTypePre, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFitnessTestServiceRegistrationPreTestSkip(t *testing.T) {
	tests := &mockTestRepo{}
	student := maleStudent()
	student.PreTestPending = true
	students := &mockStudentStore{student: student}
	activity := &mockActivityWriter{}
	svc := newTestFitnessService(tests, students, activity)

	test, err := svc.SubmitRegistrationPreTest(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Nil(t, test)
	assert.Empty(t, tests.tests)
	assert.Empty(t, activity.notes)
	require.NotNil(t, students.pendingSet)
	assert.False(t, *students.pendingSet)

	// the step is one-shot: a second attempt is rejected
	_, err = svc.SubmitRegistrationPreTest(context.Background(), "u1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFitnessTestServiceRegistrationPreTestSubmit(t *testing.T) {
	tests := &mockTestRepo{}
	student := maleStudent()
	student.PreTestPending = true
	students := &mockStudentStore{student: student}
	activity := &mockActivityWriter{}
	svc := newTestFitnessService(tests, students, activity)

	req := validSubmitRequest()
	test, err := svc.SubmitRegistrationPreTest(context.Background(), "u1", &req)
	require.NoError(t, err)
	require.NotNil(t, test)
	assert.Equal(t, models.TestTypePre, test.TestType)
	assert.False(t, students.student.PreTestPending)
	require.Len(t, activity.notes, 1)
	assert.Equal(t, "Juan Dela Cruz created his pre-test", activity.notes[0].Body)
}

func TestFitnessTestServiceUpdateOwnership(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	svc := newTestFitnessService(tests, students, nil)

	created, err := svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "someone-else", false, created.ID, validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFitnessTestServiceUpdateRejectsPreTest(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	svc := newTestFitnessService(tests, students, nil)

	created, err := svc.Submit(context.Background(), "u1", models.TestTypePre, validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "u1", false, created.ID, validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFitnessTestServiceUpdatePostOrdinalNote(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	activity := &mockActivityWriter{}
	svc := newTestFitnessService(tests, students, activity)

	first, err := svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)
	_ = first

	req := validSubmitRequest()
	req.StrengthReps = 45
	updated, err := svc.Update(context.Background(), "u1", false, second.ID, req)
	require.NoError(t, err)
	require.NotNil(t, updated.StrengthReps)
	assert.Equal(t, 45, *updated.StrengthReps)
	assert.Equal(t, second.ID, updated.ID)

	require.Len(t, activity.notes, 3)
	assert.Equal(t, "Juan Dela Cruz updated his post test #2", activity.notes[2].Body)
}

func TestFitnessTestServiceUpdatePreservesTakenAt(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	svc := newTestFitnessService(tests, students, nil)

	created, err := svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)
	originalTakenAt := created.TakenAt

	updated, err := svc.Update(context.Background(), "u1", false, created.ID, validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, originalTakenAt, updated.TakenAt)
}

func TestFitnessTestServiceAddRemark(t *testing.T) {
	tests := &mockTestRepo{}
	students := &mockStudentStore{student: maleStudent()}
	svc := newTestFitnessService(tests, students, nil)

	created, err := svc.Submit(context.Background(), "u1", models.TestTypePost, validSubmitRequest())
	require.NoError(t, err)

	remark, err := svc.AddRemark(context.Background(), RemarkRequest{TestID: created.ID, Remark: "Good improvement"})
	require.NoError(t, err)
	assert.Equal(t, "Good improvement", remark.Body)
	assert.False(t, remark.CreatedAt.IsZero())

	_, err = svc.AddRemark(context.Background(), RemarkRequest{TestID: "missing", Remark: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
