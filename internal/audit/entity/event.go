package entity

import "time"

// Kind names the security transition that was recorded.
type Kind string

const (
	KindLockedOut      Kind = "totp.locked_out"
	KindLockoutCleared Kind = "totp.lockout_cleared"
)

func (k Kind) String() string {
	return string(k)
}

// SecurityEvent is one row of the audit trail.
type SecurityEvent struct {
	ID            string
	Kind          Kind
	UserID        int64
	Username      string
	Tick          int64
	CorrelationID string
	OccurredAt    time.Time
	RecordedAt    time.Time
}
