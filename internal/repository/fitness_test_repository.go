package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trakfit-api/internal/models"
)

const fitnessTestColumns = `id, student_id, test_type, height_cm, weight_kg, vo2_distance_m, flexibility_cm, strength_reps, agility_sec, speed_sec, endurance_minutes, endurance_seconds, taken_at, remarks, remarks_created_at, created_at, updated_at`

// FitnessTestRepository manages persistence for the fitness test ledger.
// Records are append-mostly: created on submission, updated in place for
// corrections, never deleted.
type FitnessTestRepository struct {
	db *sqlx.DB
}

// NewFitnessTestRepository constructs a FitnessTestRepository.
func NewFitnessTestRepository(db *sqlx.DB) *FitnessTestRepository {
	return &FitnessTestRepository{db: db}
}

// Create inserts a new test record.
func (r *FitnessTestRepository) Create(ctx context.Context, test *models.FitnessTest) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if test.CreatedAt.IsZero() {
		test.CreatedAt = now
	}
	test.UpdatedAt = now
	if test.TakenAt.IsZero() {
		test.TakenAt = now
	}
	const query = `INSERT INTO fitness_tests (id, student_id, test_type, height_cm, weight_kg, vo2_distance_m, flexibility_cm, strength_reps, agility_sec, speed_sec, endurance_minutes, endurance_seconds, taken_at, remarks, remarks_created_at, created_at, updated_at)
        VALUES (:id, :student_id, :test_type, :height_cm, :weight_kg, :vo2_distance_m, :flexibility_cm, :strength_reps, :agility_sec, :speed_sec, :endurance_minutes, :endurance_seconds, :taken_at, :remarks, :remarks_created_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("create fitness test: %w", err)
	}
	return nil
}

// Update modifies an existing record's measurement fields in place.
func (r *FitnessTestRepository) Update(ctx context.Context, test *models.FitnessTest) error {
	test.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fitness_tests SET height_cm = :height_cm, weight_kg = :weight_kg, vo2_distance_m = :vo2_distance_m, flexibility_cm = :flexibility_cm, strength_reps = :strength_reps, agility_sec = :agility_sec, speed_sec = :speed_sec, endurance_minutes = :endurance_minutes, endurance_seconds = :endurance_seconds, taken_at = :taken_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("update fitness test: %w", err)
	}
	return nil
}

// UpdateRemark attaches free-text remarks to a record with its own timestamp.
func (r *FitnessTestRepository) UpdateRemark(ctx context.Context, id, remark string, createdAt time.Time) error {
	const query = `UPDATE fitness_tests SET remarks = $2, remarks_created_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, remark, createdAt); err != nil {
		return fmt.Errorf("update remark: %w", err)
	}
	return nil
}

// FindByID fetches a test record by identifier.
func (r *FitnessTestRepository) FindByID(ctx context.Context, id string) (*models.FitnessTest, error) {
	query := fmt.Sprintf(`SELECT %s FROM fitness_tests WHERE id = $1 LIMIT 1`, fitnessTestColumns)
	var test models.FitnessTest
	if err := r.db.GetContext(ctx, &test, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fitness test: %w", err)
	}
	return &test, nil
}

// ListByStudent returns a student's records filtered by type and date range,
// newest first by taken_at.
func (r *FitnessTestRepository) ListByStudent(ctx context.Context, studentID string, filter models.FitnessTestFilter) ([]models.FitnessTest, error) {
	conditions := []string{"student_id = $1"}
	args := []interface{}{studentID}

	if filter.TestType != nil {
		conditions = append(conditions, fmt.Sprintf("test_type = $%d", len(args)+1))
		args = append(args, *filter.TestType)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("taken_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("taken_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf(`SELECT %s FROM fitness_tests WHERE %s ORDER BY taken_at DESC`, fitnessTestColumns, strings.Join(conditions, " AND "))

	var tests []models.FitnessTest
	if err := r.db.SelectContext(ctx, &tests, query, args...); err != nil {
		return nil, fmt.Errorf("list fitness tests: %w", err)
	}
	return tests, nil
}

// LatestByType returns the student's most recent record of the given type by
// taken_at, or sql.ErrNoRows when none exists.
func (r *FitnessTestRepository) LatestByType(ctx context.Context, studentID string, testType models.TestType) (*models.FitnessTest, error) {
	query := fmt.Sprintf(`SELECT %s FROM fitness_tests WHERE student_id = $1 AND test_type = $2 ORDER BY taken_at DESC LIMIT 1`, fitnessTestColumns)
	var test models.FitnessTest
	if err := r.db.GetContext(ctx, &test, query, studentID, testType); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest fitness test: %w", err)
	}
	return &test, nil
}

// CountPostTests returns how many post tests a student has recorded.
func (r *FitnessTestRepository) CountPostTests(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM fitness_tests WHERE student_id = $1 AND test_type = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.TestTypePost); err != nil {
		return 0, fmt.Errorf("count post tests: %w", err)
	}
	return count, nil
}

// ListPostTestsOrdered returns the student's post tests ordered by taken_at
// ascending, used to resolve a record's ordinal for activity notes.
func (r *FitnessTestRepository) ListPostTestsOrdered(ctx context.Context, studentID string) ([]models.FitnessTest, error) {
	query := fmt.Sprintf(`SELECT %s FROM fitness_tests WHERE student_id = $1 AND test_type = $2 ORDER BY taken_at ASC`, fitnessTestColumns)
	var tests []models.FitnessTest
	if err := r.db.SelectContext(ctx, &tests, query, studentID, models.TestTypePost); err != nil {
		return nil, fmt.Errorf("list post tests: %w", err)
	}
	return tests, nil
}
