package session

import (
	"sync"

	"github.com/prepexam/prepexam-backend/internal/model"
)

// Ledger holds the learner's current answers for one session, keyed by
// question ID. Setting an answer for a question that already has one
// replaces it — an idempotent upsert, never an append. Entries are only
// removed when the whole session is torn down.
type Ledger struct {
	mu      sync.Mutex
	entries map[int64]model.Answer
	order   []int64 // first-touch order, for a stable submission payload
}

// NewLedger creates an empty answer ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int64]model.Answer)}
}

// Set upserts the answer for a question.
func (l *Ledger) Set(a model.Answer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.entries[a.QuestionID]; !seen {
		l.order = append(l.order, a.QuestionID)
	}
	l.entries[a.QuestionID] = a
}

// Has reports whether the question has been answered.
func (l *Ledger) Has(questionID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[questionID]
	return ok
}

// Count returns the number of distinct questions answered.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ToSlice returns the submission payload: one entry per distinct question
// touched, in first-touch order. Unanswered questions are not padded in.
func (l *Ledger) ToSlice() []model.Answer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Answer, 0, len(l.entries))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}
