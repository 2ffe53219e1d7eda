package models

import "time"

// ScheduleKind distinguishes the two kinds of weekly entries.
type ScheduleKind string

const (
	KindOfficeHour ScheduleKind = "office_hour"
	KindLabTime    ScheduleKind = "lab_time"
)

// ScheduleEntry is one weekly recurring slot owned by a staff member.
type ScheduleEntry struct {
	ID         string       `db:"id" json:"id"`
	StaffNUID  string       `db:"staff_nuid" json:"staff_nuid"`
	Kind       ScheduleKind `db:"kind" json:"kind"`
	DayOfWeek  int          `db:"day_of_week" json:"day_of_week"`
	StartTime  Clock        `db:"start_time" json:"start_time"`
	EndTime    Clock        `db:"end_time" json:"end_time"`
	Location   *string      `db:"location" json:"location,omitempty"`
	CourseCode *string      `db:"course_code" json:"course_code,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// ScheduleEntryInput carries the writable fields of an entry.
type ScheduleEntryInput struct {
	Kind       ScheduleKind `json:"kind" validate:"required,oneof=office_hour lab_time"`
	DayOfWeek  *int         `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime  string       `json:"start_time" validate:"required"`
	EndTime    string       `json:"end_time" validate:"required"`
	Location   *string      `json:"location" validate:"omitempty,max=200"`
	CourseCode *string      `json:"course_code" validate:"omitempty,max=32"`
}

// CreateScheduleRequest creates an entry. StaffNUID is the target owner and
// only a senior lead may name someone other than themselves.
type CreateScheduleRequest struct {
	ScheduleEntryInput
	StaffNUID string `json:"staff_nuid" validate:"omitempty,numeric"`
}

// ReplaceScheduleRequest replaces every entry of one staff member.
type ReplaceScheduleRequest struct {
	Entries []ScheduleEntryInput `json:"entries" validate:"dive"`
}

// GenerateSessionsRequest expands an entry into dated sessions.
type GenerateSessionsRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// Session is one dated occurrence of a schedule entry.
type Session struct {
	ID           string    `db:"id" json:"id,omitempty"`
	ScheduleID   string    `db:"schedule_id" json:"schedule_id"`
	SessionStart time.Time `db:"session_start" json:"session_start"`
	SessionEnd   time.Time `db:"session_end" json:"session_end"`
}

// UpcomingSession joins a persisted session with its entry and owner.
type UpcomingSession struct {
	Session
	StaffNUID  string  `db:"staff_nuid" json:"staff_nuid"`
	StaffName  string  `db:"staff_name" json:"staff_name"`
	Location   *string `db:"location" json:"location,omitempty"`
	CourseCode *string `db:"course_code" json:"course_code,omitempty"`
}

// OfficeHour is the public listing view of an office-hour entry.
type OfficeHour struct {
	ID         string  `db:"id" json:"id"`
	StaffNUID  string  `db:"staff_nuid" json:"staff_nuid"`
	StaffName  string  `db:"staff_name" json:"staff_name"`
	StaffRole  Role    `db:"staff_role" json:"staff_role"`
	DayOfWeek  int     `db:"day_of_week" json:"day_of_week"`
	StartTime  Clock   `db:"start_time" json:"start_time"`
	EndTime    Clock   `db:"end_time" json:"end_time"`
	Location   *string `db:"location" json:"location,omitempty"`
	CourseCode *string `db:"course_code" json:"course_code,omitempty"`
}

// QueueEntry records a signed-in caller waiting at an office-hour session.
type QueueEntry struct {
	ID         string        `db:"id" json:"id"`
	SessionID  string        `db:"session_id" json:"session_id"`
	MemberKind PrincipalKind `db:"member_kind" json:"member_kind"`
	MemberID   string        `db:"member_id" json:"member_id"`
	JoinedAt   time.Time     `db:"joined_at" json:"joined_at"`
}
