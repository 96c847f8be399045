package service

import (
	"testing"

	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func gradingExam() *model.Exam {
	return &model.Exam{ID: 7, Title: "Physics Mock 1"}
}

func gradingQuestions() []model.Question {
	return []model.Question{
		{ID: 1, ExamID: 7, Type: model.QuestionTypeMCQ, AnswerIdx: intPtr(2), Marks: 4, MinusMarks: 1},
		{ID: 2, ExamID: 7, Type: model.QuestionTypeMCQ, AnswerIdx: intPtr(0), Marks: 4, MinusMarks: 1},
		{ID: 3, ExamID: 7, Type: model.QuestionTypeWritten, Marks: 5},
	}
}

func TestGradeAttemptScoresMCQ(t *testing.T) {
	answers := []model.Answer{
		{QuestionID: 1, SelectedOption: intPtr(2)}, // correct: +4
		{QuestionID: 2, SelectedOption: intPtr(3)}, // wrong: -1
	}

	result, details := gradeAttempt(gradingExam(), 11, gradingQuestions(), answers, 600)

	assert.Equal(t, int64(7), result.ExamID)
	assert.Equal(t, int64(11), result.UserID)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 1, result.IncorrectAnswers)
	assert.Equal(t, 0, result.PendingReview)
	assert.InDelta(t, 3.0, result.Mark, 1e-9)
	assert.Equal(t, 600, result.TimeSpent)

	require.Len(t, details, 2)
	require.NotNil(t, details[0].IsCorrect)
	assert.True(t, *details[0].IsCorrect)
	assert.InDelta(t, 4.0, details[0].MarksObtained, 1e-9)
	require.NotNil(t, details[1].IsCorrect)
	assert.False(t, *details[1].IsCorrect)
	assert.InDelta(t, -1.0, details[1].MarksObtained, 1e-9)
}

func TestGradeAttemptQueuesWrittenForReview(t *testing.T) {
	answers := []model.Answer{
		{QuestionID: 3, SubmittedAnswerText: strPtr("F = ma, so acceleration doubles.")},
	}

	result, details := gradeAttempt(gradingExam(), 11, gradingQuestions(), answers, 120)

	assert.Equal(t, 1, result.PendingReview)
	assert.Zero(t, result.Mark)
	require.Len(t, details, 1)
	assert.Nil(t, details[0].IsCorrect)
	assert.Zero(t, details[0].MarksObtained)
}

func TestGradeAttemptEmptyWrittenNotPending(t *testing.T) {
	answers := []model.Answer{
		{QuestionID: 3, SubmittedAnswerText: strPtr("")},
	}

	result, _ := gradeAttempt(gradingExam(), 11, gradingQuestions(), answers, 60)
	assert.Zero(t, result.PendingReview)
}

func TestGradeAttemptSkipsForeignQuestions(t *testing.T) {
	answers := []model.Answer{
		{QuestionID: 999, SelectedOption: intPtr(0)},
		{QuestionID: 1, SelectedOption: intPtr(2)},
	}

	result, details := gradeAttempt(gradingExam(), 11, gradingQuestions(), answers, 60)

	assert.Equal(t, 1, result.CorrectAnswers)
	require.Len(t, details, 1)
	assert.Equal(t, int64(1), details[0].QuestionID)
}

func TestGradeAttemptNilSelectionScoresNothing(t *testing.T) {
	answers := []model.Answer{
		{QuestionID: 1}, // MCQ with no option picked
	}

	result, details := gradeAttempt(gradingExam(), 11, gradingQuestions(), answers, 60)

	assert.Zero(t, result.CorrectAnswers)
	assert.Zero(t, result.IncorrectAnswers)
	assert.Zero(t, result.Mark)
	require.Len(t, details, 1)
	assert.Nil(t, details[0].IsCorrect)
}

func TestGradeAttemptEmptyLedger(t *testing.T) {
	result, details := gradeAttempt(gradingExam(), 11, gradingQuestions(), nil, 1800)

	assert.Zero(t, result.Mark)
	assert.Zero(t, result.CorrectAnswers)
	assert.Equal(t, 1800, result.TimeSpent)
	assert.Empty(t, details)
}
