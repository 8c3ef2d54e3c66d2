package event

import "time"

const (
	TOTPLockedOutDestination      string = "identity.totp.locked_out"
	TOTPLockoutClearedDestination string = "identity.totp.lockout_cleared"

	// Queue group and consumer group names of the audit trail.
	TOTPLockedOutConsumerAudit      string = "audit_totp_locked_out"
	TOTPLockoutClearedConsumerAudit string = "audit_totp_lockout_cleared"
)

// TOTPLockoutMessage is published when an account is locked out by wrong
// codes or when troubleshooting lifts the lockout.
type TOTPLockoutMessage struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Tick       int64     `json:"tick"`
	OccurredAt time.Time `json:"occurred_at"`
}
