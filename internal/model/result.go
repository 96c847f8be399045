package model

import "time"

// Result is a graded exam attempt.
type Result struct {
	ID               int64     `json:"id"`
	ExamID           int64     `json:"exam_id"`
	UserID           int64     `json:"user_id"`
	CorrectAnswers   int       `json:"correct_answers"`
	IncorrectAnswers int       `json:"incorrect_answers"`
	PendingReview    int       `json:"pending_review"`
	Mark             float64   `json:"mark"`
	TimeSpent        int       `json:"time_spent"`
	AttemptNumber    int       `json:"attempt_number"`
	SubmissionTime   time.Time `json:"submission_time"`
}

// AnswerDetail is one graded answer inside a detailed result.
type AnswerDetail struct {
	QuestionID          int64   `json:"question_id"`
	SelectedOption      *int    `json:"selected_option,omitempty"`
	SubmittedAnswerText *string `json:"submitted_answer_text,omitempty"`
	IsCorrect           *bool   `json:"is_correct,omitempty"`
	CorrectOptionIdx    *int    `json:"correct_option_idx,omitempty"`
	MarksObtained       float64 `json:"marks_obtained"`
}

// DetailedResult is a result with its per-answer breakdown.
type DetailedResult struct {
	Result
	Answers []AnswerDetail `json:"answers"`
}
