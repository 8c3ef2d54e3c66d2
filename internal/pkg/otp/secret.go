package otp

import (
	"encoding/base32"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/totpguard/internal/pkg/random"
)

const (
	// Alphabet lists the base32 symbols a secret is made of.
	Alphabet = "abcdefghijklmnopqrstuvwxyz234567"
	// SecretLen is the number of symbols in a secret.
	SecretLen = 16
	// KeyLen is the decoded key size in bytes.
	KeyLen = SecretLen * 5 / 8
)

// ErrInvalidSecret is returned for text that is not 16 base32 symbols.
var ErrInvalidSecret = errors.New("otp: invalid secret")

// Secret is a validated TOTP shared secret, kept in lowercase.
type Secret struct {
	value string
}

// ParseSecret validates s, ignoring case.
func ParseSecret(s string) (Secret, error) {
	if len(s) != SecretLen {
		return Secret{}, ErrInvalidSecret
	}

	s = strings.ToLower(s)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return Secret{}, ErrInvalidSecret
		}
	}

	return Secret{value: s}, nil
}

// NewSecret draws a fresh secret from sampler.
func NewSecret(sampler random.Sampler) (Secret, error) {
	s, err := sampler.Sample(Alphabet, SecretLen)
	if err != nil {
		return Secret{}, err
	}

	return ParseSecret(s)
}

// String returns the 16 symbol text form.
func (s Secret) String() string {
	return s.value
}

// IsZero reports whether s was never set.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// Key decodes the secret into its 10 byte HMAC key.
func (s Secret) Key() []byte {
	key, err := base32.StdEncoding.DecodeString(strings.ToUpper(s.value))
	if err != nil {
		return nil
	}

	return key
}

// LogValue keeps the secret out of structured logs.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue("***")
}
