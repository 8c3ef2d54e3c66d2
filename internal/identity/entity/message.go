package entity

import "github.com/shandysiswandi/totpguard/internal/pkg/lockout"

const (
	MsgAlreadyLockedOut    = "Due to repeated wrong verification code entry, this account was already locked out."
	MsgNowLockedOut        = "Due to repeated wrong verification code entry, this account has been locked out."
	MsgIncorrectCode       = "Incorrect verification code."
	MsgClockMismatchDST    = "It looks like your verification device is off by an hour. Perhaps it is in the wrong timezone or you can update the Daylight Savings Time setting."
	MsgClockMismatchNearby = "It looks like your verification device is off by a few minutes. Set the clock of the device to the correct time, and consider turning on 'automatically set time via network' if available."
	MsgInvalidInput        = "The input should be 6 digits. Make sure to enter leading zeroes."
	MsgCodeAlreadyUsed     = "You've already logged in with this code. Wait for your verification device to show another code, then enter it."
	MsgSetupClockMismatch  = "It looks like your verification device's clock is off. Perhaps it is in the wrong timezone or you can update the Daylight Savings Time setting. Consider turning on 'automatically set time via network'. Set the clock of the device to the correct time and try again. It is off by: "

	MsgLockoutCleared = "The lockout has been lifted. You can log in again."
	MsgInvalidLogin   = "invalid username or password"
)

// NewVerification turns a policy result into user facing text.
func NewVerification(userID int64, res lockout.Result) Verification {
	v := Verification{
		UserID:   userID,
		Outcome:  res.Outcome,
		Mismatch: res.Mismatch,
		Skew:     res.Skew,
	}

	switch res.Outcome {
	case lockout.AlreadyLockedOut:
		v.Message, v.Hopeless = MsgAlreadyLockedOut, true
	case lockout.NowLockedOut:
		v.Message, v.Hopeless = MsgNowLockedOut, true
	case lockout.CodeVerificationFailure:
		v.Message = MsgIncorrectCode
	case lockout.ClockMismatch:
		v.Message = MsgClockMismatchNearby
		if res.Mismatch == lockout.MismatchDST {
			v.Message = MsgClockMismatchDST
		}
	case lockout.InvalidInput:
		v.Message = MsgInvalidInput
	case lockout.CodeAlreadyUsed:
		v.Message = MsgCodeAlreadyUsed
	}

	return v
}

// SetupMessage is the enrolment variant: a drifting clock is reported with
// the measured offset.
func SetupMessage(res lockout.Result) string {
	switch res.Outcome {
	case lockout.Success:
		return ""
	case lockout.ClockMismatch:
		return MsgSetupClockMismatch + lockout.FormatSkew(res.Skew)
	case lockout.InvalidInput:
		return MsgInvalidInput
	case lockout.CodeAlreadyUsed:
		return MsgCodeAlreadyUsed
	default:
		return MsgIncorrectCode
	}
}
