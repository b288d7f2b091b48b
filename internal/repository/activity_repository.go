package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trakfit-api/internal/models"
)

// ActivityRepository persists the append-only activity note log.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a note. Notes are write-once.
func (r *ActivityRepository) Create(ctx context.Context, note *models.ActivityNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO updates (id, student_id, body, created_at) VALUES (:id, :student_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create activity note: %w", err)
	}
	return nil
}

// ListRecent returns the newest notes across all students for the teacher
// dashboard activity feed.
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]models.ActivityNote, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, student_id, body, created_at FROM updates ORDER BY created_at DESC LIMIT %d`, limit)
	var notes []models.ActivityNote
	if err := r.db.SelectContext(ctx, &notes, query); err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return notes, nil
}
