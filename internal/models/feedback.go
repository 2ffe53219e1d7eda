package models

import "time"

// DefaultFeedbackType applies when a submission names no type.
const DefaultFeedbackType = "general"

// Feedback is an append-only submission.
type Feedback struct {
	ID        string    `db:"id" json:"id"`
	Course    *string   `db:"course" json:"course,omitempty"`
	Type      string    `db:"type" json:"type"`
	Rating    *int      `db:"rating" json:"rating"`
	Text      string    `db:"text" json:"text"`
	Submitter *string   `db:"submitter" json:"submitter,omitempty"`
	Year      *int      `db:"year" json:"year,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateFeedbackRequest is the public submission payload.
type CreateFeedbackRequest struct {
	Course    *string `json:"course" validate:"omitempty,max=32"`
	Type      string  `json:"type" validate:"omitempty,max=32"`
	Rating    *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Text      string  `json:"text" validate:"required,max=5000"`
	Submitter *string `json:"submitter" validate:"omitempty,max=200"`
	Year      *int    `json:"year" validate:"omitempty,min=1900,max=2200"`
}

// Feedback listings return DefaultFeedbackLimit rows unless asked for more,
// and never more than MaxFeedbackLimit.
const (
	DefaultFeedbackLimit = 500
	MaxFeedbackLimit     = 5000
)

// FeedbackFilter narrows staff feedback listings.
type FeedbackFilter struct {
	Course string
	Year   *int
	Limit  int
}
