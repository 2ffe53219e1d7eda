package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of authorization roles.
type Role string

const (
	RoleSeniorLead        Role = "SL"
	RoleCourseLead        Role = "CL"
	RoleLearningAssistant Role = "LA"
	RoleStudent           Role = "STUDENT"
)

// StaffRoles lists the roles a staff record may hold.
var StaffRoles = []Role{RoleSeniorLead, RoleCourseLead, RoleLearningAssistant}

// ParseRole converts persisted or claimed text into a Role.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleSeniorLead, RoleCourseLead, RoleLearningAssistant, RoleStudent:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// IsStaff reports whether the role belongs to a staff principal.
func (r Role) IsStaff() bool {
	return r == RoleSeniorLead || r == RoleCourseLead || r == RoleLearningAssistant
}

// Valid reports whether r is a member of the enumeration.
func (r Role) Valid() bool {
	return r.IsStaff() || r == RoleStudent
}
