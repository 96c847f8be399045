package session

import (
	"testing"

	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionAnswer(questionID int64, option int) model.Answer {
	return model.Answer{QuestionID: questionID, SelectedOption: &option}
}

func TestLedgerUpsertReplacesNotAppends(t *testing.T) {
	ledger := NewLedger()

	ledger.Set(optionAnswer(7, 1))
	ledger.Set(optionAnswer(7, 3))
	ledger.Set(optionAnswer(7, 2))

	assert.Equal(t, 1, ledger.Count())

	entries := ledger.ToSlice()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].QuestionID)
	require.NotNil(t, entries[0].SelectedOption)
	assert.Equal(t, 2, *entries[0].SelectedOption)
}

func TestLedgerPreservesFirstTouchOrder(t *testing.T) {
	ledger := NewLedger()

	ledger.Set(optionAnswer(5, 1))
	ledger.Set(optionAnswer(2, 1))
	ledger.Set(optionAnswer(9, 1))
	ledger.Set(optionAnswer(2, 4)) // revision must not move the entry

	entries := ledger.ToSlice()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(5), entries[0].QuestionID)
	assert.Equal(t, int64(2), entries[1].QuestionID)
	assert.Equal(t, int64(9), entries[2].QuestionID)
	assert.Equal(t, 4, *entries[1].SelectedOption)
}

func TestLedgerHas(t *testing.T) {
	ledger := NewLedger()
	assert.False(t, ledger.Has(1))

	text := "photosynthesis"
	ledger.Set(model.Answer{QuestionID: 1, SubmittedAnswerText: &text})
	assert.True(t, ledger.Has(1))
	assert.False(t, ledger.Has(2))
}

func TestLedgerEmptySliceNotNilPadded(t *testing.T) {
	ledger := NewLedger()
	entries := ledger.ToSlice()
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
