package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trakfit-api/internal/models"
)

func TestActivityCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO updates").WillReturnResult(sqlmock.NewResult(1, 1))

	note := &models.ActivityNote{StudentID: "u1", Body: "Student Juan Dela Cruz registered"}
	err := repo.Create(context.Background(), note)
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.False(t, note.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListRecentClampsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "body", "created_at"}).
		AddRow("n1", "u1", "Juan Dela Cruz created his pre-test", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, body, created_at FROM updates ORDER BY created_at DESC LIMIT 20")).
		WillReturnRows(rows)

	notes, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Body, "pre-test")
	assert.NoError(t, mock.ExpectationsWereMet())
}
