package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
)

type studentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Update(ctx context.Context, student *models.Student) error
}

// UpdateProfileRequest holds the editable profile fields.
type UpdateProfileRequest struct {
	FirstName     string  `json:"first_name" validate:"required"`
	MiddleInitial *string `json:"middle_initial,omitempty"`
	LastName      string  `json:"last_name" validate:"required"`
	Age           int     `json:"age" validate:"required,gte=5,lte=100"`
	Gender        *string `json:"gender,omitempty"`
	SectionCode   string  `json:"section_code" validate:"required"`
	GroupCode     string  `json:"group_code" validate:"required"`
}

// StudentService handles profile use cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Profile returns the student profile owned by the given account.
func (s *StudentService) Profile(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

// UpdateProfile applies edits to the caller's own profile.
func (s *StudentService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	student, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	student.FirstName = req.FirstName
	student.MiddleInitial = req.MiddleInitial
	student.LastName = req.LastName
	student.Age = req.Age
	student.Gender = req.Gender
	student.SectionCode = req.SectionCode
	student.GroupCode = req.GroupCode

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}
	return student, nil
}

// List returns the staff roster view with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// FindByStudentNo resolves a profile for the staff drill-down view.
func (s *StudentService) FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error) {
	student, err := s.repo.FindByStudentNo(ctx, studentNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
