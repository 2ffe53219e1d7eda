package models

import "time"

// StudentStatus tracks the approval workflow of a self-registered student.
type StudentStatus string

const (
	StudentPending  StudentStatus = "pending"
	StudentApproved StudentStatus = "approved"
	StudentRejected StudentStatus = "rejected"
)

// Student is a row of the students table.
type Student struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	Name         string        `db:"name" json:"name"`
	NUID         *string       `db:"nuid" json:"nuid,omitempty"`
	ClassYear    *int          `db:"class_year" json:"class_year,omitempty"`
	Status       StudentStatus `db:"status" json:"status"`
	PasswordHash *string       `db:"password_hash" json:"-"`
	ApprovedAt   *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy   *string       `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	Courses      []string      `db:"-" json:"courses,omitempty"`
}

// StudentSignupRequest is the self-registration payload.
type StudentSignupRequest struct {
	Email     string   `json:"email" validate:"required,email,max=254"`
	Name      string   `json:"name" validate:"required,max=200"`
	Password  string   `json:"password" validate:"required"`
	NUID      *string  `json:"nuid" validate:"omitempty,numeric,min=7,max=10"`
	ClassYear *int     `json:"class_year" validate:"omitempty,min=1900,max=2200"`
	Courses   []string `json:"courses" validate:"omitempty,dive,required,max=32"`
}
