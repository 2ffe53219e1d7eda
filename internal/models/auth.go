package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PrincipalKind separates the two account tables.
type PrincipalKind string

const (
	KindStaff   PrincipalKind = "staff"
	KindStudent PrincipalKind = "student"
)

// LoginRequest holds credentials. Login is a NUID or an email address.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse returns the issued token and the principal summary.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Principal `json:"user"`
}

// Principal is the authenticated actor. It never carries a password digest.
type Principal struct {
	Kind  PrincipalKind `json:"kind"`
	ID    string        `json:"id"`
	Role  Role          `json:"role"`
	Name  string        `json:"name"`
	Email string        `json:"email,omitempty"`
}

// IsStaff reports whether the principal is a staff member.
func (p *Principal) IsStaff() bool {
	return p != nil && p.Kind == KindStaff && p.Role.IsStaff()
}

// Claims is the JWT payload.
type Claims struct {
	Kind  PrincipalKind `json:"kind"`
	Role  Role          `json:"role"`
	Name  string        `json:"name"`
	Email string        `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal rebuilds the acting principal from verified claims.
func (c *Claims) Principal() *Principal {
	if c == nil {
		return nil
	}
	return &Principal{Kind: c.Kind, ID: c.Subject, Role: c.Role, Name: c.Name, Email: c.Email}
}

// ChangePasswordRequest updates the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// AdminResetPasswordRequest lets a senior lead set any principal's password.
// Staff targets are addressed by NUID, students by email.
type AdminResetPasswordRequest struct {
	Target      PrincipalKind `json:"target" validate:"required,oneof=staff student"`
	NUID        string        `json:"nuid" validate:"required_if=Target staff,omitempty,numeric"`
	Email       string        `json:"email" validate:"required_if=Target student,omitempty,email"`
	NewPassword string        `json:"new_password" validate:"required"`
}

// OKResponse is the body of acknowledgement-only endpoints.
type OKResponse struct {
	OK bool `json:"ok"`
}
