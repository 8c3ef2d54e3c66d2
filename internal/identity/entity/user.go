package entity

import (
	"time"

	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
)

// User is a stored account.
type User struct {
	ID             int64
	Username       string
	PasswordRecord string
	CreatedAt      time.Time
}

// Factor is the TOTP factor of a user. Version guards concurrent updates.
type Factor struct {
	UserID       int64
	SealedSecret []byte
	State        lockout.State
	Version      int64
}

// Verification is what the caller of a code check is told.
type Verification struct {
	UserID   int64
	Outcome  lockout.Outcome
	Mismatch lockout.Mismatch
	Skew     int64
	Message  string
	// Hopeless means retrying with another code cannot help.
	Hopeless bool
}

// Succeeded reports whether the code was accepted.
func (v Verification) Succeeded() bool {
	return v.Outcome == lockout.Success
}
