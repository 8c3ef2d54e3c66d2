package hash

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blowfish"
)

const (
	// Version is the only record version produced and accepted.
	Version = "2a"
	// MinCost is the smallest accepted cost exponent.
	MinCost = 4
	// MaxCost is the largest accepted cost exponent.
	MaxCost = 31
	// DefaultCost is used when a hasher is created with a zero cost.
	DefaultCost = 10
	// RecordLen is the length of every password record.
	RecordLen = 60
	// SaltLen is the raw salt size in bytes.
	SaltLen = saltLen

	maxKeyLen = 72
)

var (
	// ErrInvalidRecord reports a stored record that is not a well formed
	// $2a$ bcrypt string. It never means "wrong password".
	ErrInvalidRecord = errors.New("hash: invalid password record")
	// ErrInvalidCost reports a cost outside [MinCost, MaxCost].
	ErrInvalidCost = errors.New("hash: invalid cost")
	// ErrInvalidSalt reports a salt that is not exactly SaltLen bytes.
	ErrInvalidSalt = errors.New("hash: invalid salt")
	// ErrEmptyPassword reports an empty password argument.
	ErrEmptyPassword = errors.New("hash: empty password")
)

var magicCipherData = []byte("OrpheanBeholderScryDoubt")

// CheckCost returns an error wrapping ErrInvalidCost when cost is outside
// [MinCost, MaxCost].
func CheckCost(cost int) error {
	if cost < MinCost || cost > MaxCost {
		return fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return nil
}

// HashPassword produces the 60 character record for password, salt and cost.
func HashPassword(password, salt []byte, cost int) (string, error) {
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}
	if len(salt) != SaltLen {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidSalt, len(salt))
	}
	if err := CheckCost(cost); err != nil {
		return "", err
	}

	key := passwordKey(password)
	defer clear(key)

	sum, err := eksBlowfish(key, salt, cost)
	if err != nil {
		return "", err
	}
	defer clear(sum)

	return fmt.Sprintf("$%s$%02d$%s%s", Version, cost, encodeSalt(salt), encodeHash(sum)), nil
}

// VerifyPassword reports whether password matches record. A malformed record
// is returned as an error wrapping ErrInvalidRecord or ErrInvalidCost, so
// callers can tell a broken store apart from a wrong password.
func VerifyPassword(record string, password []byte) (bool, error) {
	cost, salt, err := parseRecord(record)
	if err != nil {
		return false, err
	}

	computed, err := HashPassword(password, salt, cost)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(record)) == 1, nil
}

// Cost returns the cost exponent stored in record.
func Cost(record string) (int, error) {
	cost, _, err := parseRecord(record)
	return cost, err
}

func parseRecord(record string) (int, []byte, error) {
	if len(record) != RecordLen {
		return 0, nil, fmt.Errorf("%w: length %d", ErrInvalidRecord, len(record))
	}
	if record[0] != '$' || record[3] != '$' || record[6] != '$' {
		return 0, nil, fmt.Errorf("%w: bad delimiters", ErrInvalidRecord)
	}
	if record[1:3] != Version {
		return 0, nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidRecord, record[1:3])
	}

	digits := record[4:6]
	if digits[0] < '0' || digits[0] > '9' || digits[1] < '0' || digits[1] > '9' {
		return 0, nil, fmt.Errorf("%w: bad cost %q", ErrInvalidRecord, digits)
	}
	cost, err := strconv.Atoi(digits)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: bad cost %q", ErrInvalidRecord, digits)
	}
	if err := CheckCost(cost); err != nil {
		return 0, nil, err
	}

	salt, err := decodeSalt(record[7 : 7+encodedSaltLen])
	if err != nil {
		return 0, nil, err
	}

	return cost, salt, nil
}

// passwordKey is the password bytes plus the trailing NUL, capped at 72
// bytes. The caller owns and must clear the result.
func passwordKey(password []byte) []byte {
	n := min(len(password)+1, maxKeyLen)
	key := make([]byte, n)
	copy(key, password)
	return key
}

func eksBlowfish(key, salt []byte, cost int) ([]byte, error) {
	c, err := blowfish.NewSaltedCipher(key, salt)
	if err != nil {
		return nil, err
	}

	rounds := uint64(1) << uint(cost)
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(key, c)
		blowfish.ExpandKey(salt, c)
	}

	sum := make([]byte, len(magicCipherData))
	copy(sum, magicCipherData)
	for i := 0; i < len(sum); i += blowfish.BlockSize {
		for range 64 {
			c.Encrypt(sum[i:i+blowfish.BlockSize], sum[i:i+blowfish.BlockSize])
		}
	}

	return sum, nil
}
