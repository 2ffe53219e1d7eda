package models

import (
	"time"

	"github.com/lib/pq"
)

// Staff is a row of the staff table.
type Staff struct {
	NUID         string     `db:"nuid" json:"nuid"`
	Name         string     `db:"name" json:"name"`
	Email        *string    `db:"email" json:"email,omitempty"`
	Role         Role       `db:"role" json:"role"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// StaffSummary is the public directory view of a staff member.
type StaffSummary struct {
	NUID    string         `db:"nuid" json:"nuid"`
	Name    string         `db:"name" json:"name"`
	Email   *string        `db:"email" json:"email,omitempty"`
	Role    Role           `db:"role" json:"role"`
	Courses pq.StringArray `db:"courses" json:"courses"`
}

// StaffFilter narrows directory listings.
type StaffFilter struct {
	Role   *Role
	Course string
}

// CreateStaffRequest is submitted by a senior lead to add a staff member.
type CreateStaffRequest struct {
	NUID     string   `json:"nuid" validate:"required,numeric,min=7,max=10"`
	Name     string   `json:"name" validate:"required,max=200"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Role     Role     `json:"role" validate:"required,oneof=SL CL LA"`
	Password string   `json:"password" validate:"omitempty"`
	Courses  []string `json:"courses" validate:"omitempty,dive,required,max=32"`
}

// UpdateStaffRequest changes mutable staff fields. Nil fields are left untouched.
type UpdateStaffRequest struct {
	Name     *string   `json:"name" validate:"omitempty,max=200"`
	Email    *string   `json:"email" validate:"omitempty,email"`
	Role     *Role     `json:"role" validate:"omitempty,oneof=SL CL LA"`
	IsActive *bool     `json:"is_active"`
	Courses  *[]string `json:"courses" validate:"omitempty,dive,required,max=32"`
}

// SupervisionRequest replaces the learning assistants assigned to a course lead.
type SupervisionRequest struct {
	LANUIDs []string `json:"la_nuids" validate:"dive,required,numeric"`
}

// Supervision lists the learning assistants assigned to a course lead.
type Supervision struct {
	CLNUID  string   `json:"cl_nuid"`
	LANUIDs []string `json:"la_nuids"`
}
