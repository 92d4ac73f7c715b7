package domain

import "time"

// EmailChallenge is a single-use, time-bounded verification code tied to a
// user and a target email. The code itself is stored hashed; stale rows are
// kept but never selected once a newer valid one exists.
type EmailChallenge struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Email     string     `json:"email"`
	CodeHash  string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (c *EmailChallenge) Usable(now time.Time) bool {
	return c.UsedAt == nil && now.Before(c.ExpiresAt)
}

// VerificationResult is deliberately coarse: expired and wrong codes are the
// same outcome so the reply leaks nothing about which it was.
type VerificationResult int

const (
	VerificationInvalid VerificationResult = iota
	VerificationOK
)
