package models

import "time"

// ActivityNote is an append-only log entry describing a change to a
// student's data. Notes are generated by the application on registration and
// on every fitness test save; they are never edited or deleted.
type ActivityNote struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
