package session

import (
	"context"
	"fmt"

	"github.com/prepexam/prepexam-backend/internal/model"
)

// GateReason identifies which eligibility check blocked a session.
type GateReason string

const (
	GateLoginRequired    GateReason = "LOGIN_REQUIRED"
	GateExamInactive     GateReason = "EXAM_INACTIVE"
	GateExamNotStarted   GateReason = "EXAM_NOT_STARTED"
	GateExamEnded        GateReason = "EXAM_ENDED"
	GatePremiumRequired  GateReason = "PREMIUM_REQUIRED"
	GateAlreadyAttempted GateReason = "ALREADY_ATTEMPTED"
)

// Redirect hints for gate failures. The actual routes belong to the client
// application; the gate only says where the learner should be sent.
const (
	RedirectLogin   = "login"
	RedirectCatalog = "catalog"
	RedirectUpgrade = "upgrade"
	RedirectResult  = "result"
)

// GateFailure describes why a session was blocked before it could start.
// Every gate failure is terminal for this open; the learner must re-open the
// exam to be re-evaluated.
type GateFailure struct {
	Reason   GateReason `json:"reason"`
	Redirect string     `json:"redirect"`
}

// AttemptChecker answers the "has this user already taken this exam"
// question for the already-attempted check.
type AttemptChecker interface {
	HasAttempted(ctx context.Context, examID, userID int64) (bool, error)
}

// Gate runs the ordered pre-flight eligibility checks for opening an exam.
// Checks short-circuit: the first failing check decides the block reason and
// no later check is evaluated.
type Gate struct {
	attempts AttemptChecker
	clock    Clock
}

// NewGate creates an eligibility gate.
func NewGate(attempts AttemptChecker, clock Clock) *Gate {
	return &Gate{attempts: attempts, clock: clock}
}

// Check evaluates the gate for one exam and identity. A nil GateFailure with
// a nil error means the session may start. The full gate runs on every open,
// including retakes of exams that allow multiple attempts.
func (g *Gate) Check(ctx context.Context, exam *model.Exam, id Identity) (*GateFailure, error) {
	// 1. Authentication. Free exams fall through to the anonymous capture
	// path instead of hard-blocking.
	if !id.Authenticated() && !exam.AllowsAnonymous() {
		return &GateFailure{Reason: GateLoginRequired, Redirect: RedirectLogin}, nil
	}

	// 2. Exam must be active.
	if !exam.IsActive {
		return &GateFailure{Reason: GateExamInactive, Redirect: RedirectCatalog}, nil
	}

	now := g.clock.Now()

	// 3. Exam must have started.
	if now.Before(exam.StartTime) {
		return &GateFailure{Reason: GateExamNotStarted, Redirect: RedirectCatalog}, nil
	}

	// 4. Exam must not have ended.
	if now.After(exam.EndTime) {
		return &GateFailure{Reason: GateExamEnded, Redirect: RedirectCatalog}, nil
	}

	// 5. Premium gate.
	if exam.RequiresPremium() {
		auth, ok := id.(AuthenticatedIdentity)
		if !ok {
			return &GateFailure{Reason: GateLoginRequired, Redirect: RedirectLogin}, nil
		}
		if !auth.IsPremium {
			return &GateFailure{Reason: GatePremiumRequired, Redirect: RedirectUpgrade}, nil
		}
	}

	// 6. Prior attempt, unless retakes are allowed. Anonymous participants
	// are not attempt-checked; they are deduplicated by email at submission.
	if !exam.AllowMultipleAttempts {
		if auth, ok := id.(AuthenticatedIdentity); ok {
			attempted, err := g.attempts.HasAttempted(ctx, exam.ID, auth.UserID)
			if err != nil {
				return nil, fmt.Errorf("check attempt: %w", err)
			}
			if attempted {
				return &GateFailure{Reason: GateAlreadyAttempted, Redirect: RedirectResult}, nil
			}
		}
	}

	return nil, nil
}
