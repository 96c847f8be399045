package model

import (
	"time"
)

// Exam represents a timed exam with its schedule and access flags.
type Exam struct {
	ID                    int64      `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description,omitempty"`
	StartTime             time.Time  `json:"start_time"`
	EndTime               time.Time  `json:"end_time"`
	DurationMinutes       int        `json:"duration_minutes"`
	IsActive              bool       `json:"is_active"`
	IsFree                bool       `json:"is_free"`
	AllowMultipleAttempts bool       `json:"allow_multiple_attempts"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	DeletedAt             *time.Time `json:"-"`
	Questions             []Question `json:"questions,omitempty"`
}

// Duration returns the exam length as a time.Duration.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// RequiresPremium reports whether a premium subscription gates this exam.
// Free exams are open to everyone, including anonymous participants.
func (e *Exam) RequiresPremium() bool {
	return !e.IsFree
}

// AllowsAnonymous reports whether the exam supports anonymous participation.
func (e *Exam) AllowsAnonymous() bool {
	return e.IsFree
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title                 string    `json:"title" binding:"required,min=3,max=255"`
	Description           string    `json:"description" binding:"omitempty,max=5000"`
	StartTime             time.Time `json:"start_time" binding:"required"`
	EndTime               time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	DurationMinutes       int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	IsActive              *bool     `json:"is_active" binding:"omitempty"`
	IsFree                *bool     `json:"is_free" binding:"omitempty"`
	AllowMultipleAttempts *bool     `json:"allow_multiple_attempts" binding:"omitempty"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title                 string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description           *string    `json:"description" binding:"omitempty,max=5000"`
	StartTime             *time.Time `json:"start_time" binding:"omitempty"`
	EndTime               *time.Time `json:"end_time" binding:"omitempty"`
	DurationMinutes       *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	IsActive              *bool      `json:"is_active" binding:"omitempty"`
	IsFree                *bool      `json:"is_free" binding:"omitempty"`
	AllowMultipleAttempts *bool      `json:"allow_multiple_attempts" binding:"omitempty"`
}

// ExamSummary is the catalog listing shape (no questions attached).
type ExamSummary struct {
	ID                    int64     `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description,omitempty"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	DurationMinutes       int       `json:"duration_minutes"`
	IsActive              bool      `json:"is_active"`
	IsFree                bool      `json:"is_free"`
	AllowMultipleAttempts bool      `json:"allow_multiple_attempts"`
	QuestionCount         int       `json:"question_count"`
}

// CheckAttemptResponse is the shape of GET /api/exams/:id/check-attempt.
type CheckAttemptResponse struct {
	HasAttempted bool `json:"has_attempted"`
}
