package otp

import (
	"encoding/base32"
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	// Period is the length of one tick.
	Period = 30 * time.Second
	// Digits is the code length.
	Digits = 6
)

// ErrInvalidTick is returned for ticks before the Unix epoch.
var ErrInvalidTick = errors.New("otp: negative tick")

// CodeGenerator computes the code a device shows at a tick.
type CodeGenerator interface {
	CodeAt(secret Secret, tick int64) (string, error)
}

// TOTP implements CodeGenerator with SHA1 and 6 digits.
type TOTP struct {
	opts hotp.ValidateOpts
}

// NewTOTP returns the fixed SHA1, 6 digit generator.
func NewTOTP() *TOTP {
	return &TOTP{
		opts: hotp.ValidateOpts{
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	}
}

// CodeAt returns the zero padded code for secret at tick.
func (t *TOTP) CodeAt(secret Secret, tick int64) (string, error) {
	if secret.IsZero() {
		return "", ErrInvalidSecret
	}

	return t.counterCode(secret.String(), tick)
}

// KeyCodeAt computes the code for a raw HMAC key of any length. It exists
// for keys provisioned outside this package.
func (t *TOTP) KeyCodeAt(key []byte, counter int64) (string, error) {
	if len(key) == 0 {
		return "", ErrInvalidSecret
	}

	return t.counterCode(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key), counter)
}

func (t *TOTP) counterCode(secret string, counter int64) (string, error) {
	if counter < 0 {
		return "", ErrInvalidTick
	}

	return hotp.GenerateCodeCustom(secret, uint64(counter), t.opts)
}

// TickAt returns floor(unix_ms / 30000).
func TickAt(at time.Time) int64 {
	ms := at.UnixMilli()
	period := Period.Milliseconds()

	tick := ms / period
	if ms%period != 0 && ms < 0 {
		tick--
	}

	return tick
}

// TickStart returns the first instant of tick.
func TickStart(tick int64) time.Time {
	return time.UnixMilli(tick * Period.Milliseconds()).UTC()
}
