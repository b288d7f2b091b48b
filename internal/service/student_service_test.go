package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
)

type mockStudentRepo struct {
	student *models.Student
	roster  []models.Student
	total   int
	updated *models.Student
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.student == nil || m.student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	copied := *m.student
	return &copied, nil
}

func (m *mockStudentRepo) FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error) {
	if m.student == nil || m.student.StudentNo != studentNo {
		return nil, sql.ErrNoRows
	}
	copied := *m.student
	return &copied, nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return m.roster, m.total, nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.updated = student
	return nil
}

func TestStudentServiceProfileNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Profile(context.Background(), "unknown")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateProfile(t *testing.T) {
	repo := &mockStudentRepo{student: maleStudent()}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	updated, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		FirstName:   "Juan",
		LastName:    "Reyes",
		Age:         17,
		SectionCode: "B",
		GroupCode:   "G2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Reyes", updated.LastName)
	assert.Equal(t, "B", updated.SectionCode)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "G2", repo.updated.GroupCode)
	// identity fields are not editable
	assert.Equal(t, "2024-001", updated.StudentNo)
}

func TestStudentServiceUpdateProfileValidation(t *testing.T) {
	repo := &mockStudentRepo{student: maleStudent()}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{FirstName: "Juan"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestStudentServiceListPagination(t *testing.T) {
	repo := &mockStudentRepo{roster: []models.Student{*maleStudent()}, total: 41}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}
