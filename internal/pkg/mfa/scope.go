package mfa

import (
	"crypto/sha256"
	"strconv"
)

// Purpose identifies what a sealed value is used for.
type Purpose string

// PurposeOTPSeed scopes sealing to TOTP shared secrets.
const PurposeOTPSeed Purpose = "otp_seed"

// Scope binds a ciphertext to its owner.
type Scope struct {
	UserID  int64
	Purpose Purpose
}

// OTPSeed returns the scope of userID's TOTP secret.
func OTPSeed(userID int64) Scope {
	return Scope{UserID: userID, Purpose: PurposeOTPSeed}
}

// aad hashes a labelled canonical form so the AAD has a fixed length and no
// separator ambiguity.
func (s Scope) aad() []byte {
	canonical := "uid=" + strconv.FormatInt(s.UserID, 10) + "\npurpose=" + string(s.Purpose) + "\n"
	sum := sha256.Sum256([]byte(canonical))
	return sum[:]
}
