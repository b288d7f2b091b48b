package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trakfit-api/internal/models"
)

const studentColumns = `user_id, student_no, first_name, middle_initial, last_name, age, gender, section_code, group_code, pre_test_pending, last_data_update_at, created_at, updated_at`

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByUserID fetches the profile owned by the given account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE user_id = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user id: %w", err)
	}
	return &student, nil
}

// FindByStudentNo fetches a profile by its unique student number.
func (r *StudentRepository) FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE student_no = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by student no: %w", err)
	}
	return &student, nil
}

// ExistsByStudentNo checks if a profile with the given student number exists.
func (r *StudentRepository) ExistsByStudentNo(ctx context.Context, studentNo string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE student_no = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentNo); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student no: %w", err)
	}
	return true, nil
}

// List returns student profiles matching the roster filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.SectionCode != "" {
		conditions = append(conditions, fmt.Sprintf("section_code = $%d", len(args)+1))
		args = append(args, filter.SectionCode)
	}
	if filter.GroupCode != "" {
		conditions = append(conditions, fmt.Sprintf("group_code = $%d", len(args)+1))
		args = append(args, filter.GroupCode)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(student_no) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"student_no": "student_no",
		"last_name":  "last_name",
		"section":    "section_code",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "student_no"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "student_no"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentColumns, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student profile, used by the class-wide aggregation.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY student_no ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// Update modifies the editable profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, middle_initial = :middle_initial, last_name = :last_name, age = :age, gender = :gender, section_code = :section_code, group_code = :group_code, updated_at = :updated_at WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// TouchLastDataUpdate stamps the student's last-data-update marker.
func (r *StudentRepository) TouchLastDataUpdate(ctx context.Context, userID string, ts time.Time) error {
	const query = `UPDATE students SET last_data_update_at = $2, updated_at = $2 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, ts); err != nil {
		return fmt.Errorf("touch last data update: %w", err)
	}
	return nil
}

// SetPreTestPending toggles the registration pre-test gate.
func (r *StudentRepository) SetPreTestPending(ctx context.Context, userID string, pending bool) error {
	const query = `UPDATE students SET pre_test_pending = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, pending, time.Now().UTC()); err != nil {
		return fmt.Errorf("set pre test pending: %w", err)
	}
	return nil
}
