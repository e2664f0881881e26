package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session JTI.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptAnswersKey returns the hash key holding an attempt's live answers.
// Field = question ID, value = selected option letter.
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// AttemptMarksKey returns the hash key holding an attempt's marked-for-review
// flags. Field = question ID, value = "1" or "0".
func (r *CacheKeyStruct) AttemptMarksKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:marks", attemptID)
}

// AttemptDeadlineKey returns the key caching an attempt's submission deadline
// as a Unix timestamp.
func (r *CacheKeyStruct) AttemptDeadlineKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:deadline", attemptID)
}

// SetAnswerKey returns the key caching an exam set's answer key
// (question ID -> correct option), used to validate incoming question IDs.
func (r *CacheKeyStruct) SetAnswerKey(setID string) string {
	return fmt.Sprintf("set:%s:key", setID)
}

// RateLimitKey returns the counter key for per-IP rate limiting on a route
// group.
func (r *CacheKeyStruct) RateLimitKey(group, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", group, ip)
}

var CacheKey = NewCacheKeyStruct()
