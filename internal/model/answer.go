package model

// Answer is a learner's answer to one question, as carried in the submission
// payload. For MCQ questions SelectedOption is the chosen option index; for
// WRITTEN questions SubmittedAnswerText holds the free-form response. The two
// are mutually exclusive on a single record.
type Answer struct {
	QuestionID          int64   `json:"question_id"`
	SelectedOption      *int    `json:"selected_option,omitempty"`
	SubmittedAnswerText *string `json:"submitted_answer_text,omitempty"`
}

// SubmitExamRequest is the canonical body of POST /api/exams/:id/submit.
type SubmitExamRequest struct {
	Answers   []Answer `json:"answers" binding:"required"`
	TimeSpent int      `json:"time_spent" binding:"min=0"`
}

// AnonymousSubmitRequest is the body of POST /api/exams/:id/submit/anonymous.
// Mobile is optional; name and email are required before any submission.
type AnonymousSubmitRequest struct {
	Name         string   `json:"name" binding:"required,min=2,max=120"`
	Email        string   `json:"email" binding:"required,email"`
	ActiveMobile string   `json:"active_mobile" binding:"omitempty,max=20"`
	Answers      []Answer `json:"answers" binding:"required"`
	TimeSpent    int      `json:"time_spent" binding:"min=0"`
}
