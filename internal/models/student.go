package models

import (
	"strings"
	"time"
)

// Student is the profile extension of a user account, keyed by the owning
// user ID. Exactly one profile exists per account; student_no is unique
// across the school.
type Student struct {
	UserID           string     `db:"user_id" json:"user_id"`
	StudentNo        string     `db:"student_no" json:"student_no"`
	FirstName        string     `db:"first_name" json:"first_name"`
	MiddleInitial    *string    `db:"middle_initial" json:"middle_initial,omitempty"`
	LastName         string     `db:"last_name" json:"last_name"`
	Age              int        `db:"age" json:"age"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	SectionCode      string     `db:"section_code" json:"section_code"`
	GroupCode        string     `db:"group_code" json:"group_code"`
	PreTestPending   bool       `db:"pre_test_pending" json:"pre_test_pending"`
	LastDataUpdateAt *time.Time `db:"last_data_update_at" json:"last_data_update_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last" for display and activity notes.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Pronoun maps the optional gender field to the possessive pronoun used in
// activity notes. Unknown or missing gender falls back to "his/her".
func (s Student) Pronoun() string {
	if s.Gender == nil {
		return "his/her"
	}
	switch strings.ToLower(*s.Gender) {
	case "male", "m":
		return "his"
	case "female", "f":
		return "her"
	default:
		return "his/her"
	}
}

// StudentFilter encapsulates allowed search parameters for the roster view.
type StudentFilter struct {
	Search      string
	SectionCode string
	GroupCode   string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
