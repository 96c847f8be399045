package model

// QuestionType distinguishes single-choice from free-form questions.
type QuestionType string

const (
	QuestionTypeMCQ     QuestionType = "MCQ"
	QuestionTypeWritten QuestionType = "WRITTEN"
)

// QuestionOption is one labeled choice of an MCQ question. Either Text or
// ImageURL (or both) may be set.
type QuestionOption struct {
	Label    string `json:"label"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Question represents a single exam question. For MCQ questions AnswerIdx is
// the index into Options of the correct choice; WRITTEN questions carry no
// options and no correct index.
type Question struct {
	ID          int64            `json:"id"`
	ExamID      int64            `json:"exam_id"`
	Type        QuestionType     `json:"q_type"`
	Content     string           `json:"content"`
	ImageURL    string           `json:"image_url,omitempty"`
	Description string           `json:"description,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	AnswerIdx   *int             `json:"-"`
	Marks       float64          `json:"marks"`
	MinusMarks  float64          `json:"minus_marks"`
	OrderNum    int              `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Type        string           `json:"q_type" binding:"required,oneof=MCQ WRITTEN"`
	Content     string           `json:"content" binding:"required,min=1,max=5000"`
	ImageURL    string           `json:"image_url" binding:"omitempty,max=2000"`
	Description string           `json:"description" binding:"omitempty,max=5000"`
	Options     []QuestionOption `json:"options" binding:"omitempty,max=4,dive"`
	AnswerIdx   *int             `json:"answer_idx" binding:"omitempty,min=0,max=3"`
	Marks       float64          `json:"marks" binding:"omitempty,min=0"`
	MinusMarks  float64          `json:"minus_marks" binding:"omitempty,min=0"`
	OrderNum    int              `json:"order_num" binding:"min=0"`
}

// BulkQuestionsRequest is the payload for adding questions in bulk.
type BulkQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
