package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AnonProfileKey returns the cache key for a captured anonymous profile,
// keyed by the opaque guest key issued to the browser.
func (r *CacheKeyStruct) AnonProfileKey(guestKey string) string {
	return fmt.Sprintf("guest:%s:profile", guestKey)
}

// SessionDeadlineKey returns the cache key for an open session's absolute
// submission deadline (unix seconds).
func (r *CacheKeyStruct) SessionDeadlineKey(examID int64, identityKey string) string {
	return fmt.Sprintf("exam:%d:session:%s:deadline", examID, identityKey)
}

// AttemptFlagKey returns the cache key for the "already attempted" flag of a
// user on an exam.
func (r *CacheKeyStruct) AttemptFlagKey(examID, userID int64) string {
	return fmt.Sprintf("user:%d:exam:%d:attempted", userID, examID)
}

var CacheKey = NewCacheKeyStruct()
