package session

import (
	"fmt"
	"strings"

	"github.com/prepexam/prepexam-backend/internal/model"
)

// Identity is the participant a session is bound to. A session carries
// exactly one identity for its lifetime: either an authenticated user or an
// anonymous guest whose profile is captured just in time before the first
// submission.
type Identity interface {
	// Key uniquely identifies the participant for session registry purposes.
	Key() string
	// Authenticated reports whether the participant holds a real account.
	Authenticated() bool
}

// AuthenticatedIdentity is a logged-in user. IsPremium mirrors the profile's
// subscription flag at session-open time and feeds the premium gate check.
type AuthenticatedIdentity struct {
	UserID    int64
	IsPremium bool
}

func (a AuthenticatedIdentity) Key() string         { return fmt.Sprintf("user:%d", a.UserID) }
func (a AuthenticatedIdentity) Authenticated() bool { return true }

// AnonymousIdentity is a guest participant. GuestKey is an opaque per-browser
// key; Profile stays nil until the capture step completes.
type AnonymousIdentity struct {
	GuestKey string
	Profile  *model.AnonymousProfile
}

func (a AnonymousIdentity) Key() string         { return "guest:" + a.GuestKey }
func (a AnonymousIdentity) Authenticated() bool { return false }

// Complete reports whether the guest profile has the required name and email.
// Mobile is optional.
func (a AnonymousIdentity) Complete() bool {
	return a.Profile != nil &&
		strings.TrimSpace(a.Profile.Name) != "" &&
		strings.TrimSpace(a.Profile.Email) != ""
}
