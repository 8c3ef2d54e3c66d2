package mfa

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/random"
)

// Sealer encrypts and decrypts values for a scope.
type Sealer interface {
	Seal(plaintext []byte, scope Scope) ([]byte, error)
	Open(ciphertext []byte, scope Scope) ([]byte, error)
}

// Ciphertext layout: uint16 version, 12 byte nonce, GCM output.
const (
	version   uint16 = 1
	nonceSize        = 12
	headerLen        = 2 + nonceSize
	// KeyLen is the AES-256 key size in bytes.
	KeyLen = 32
)

var (
	// ErrInvalidKeyLength indicates a key that is not KeyLen bytes.
	ErrInvalidKeyLength = errors.New("mfa: invalid key length")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("mfa: plaintext is empty")
	// ErrCiphertextTooShort indicates a truncated ciphertext.
	ErrCiphertextTooShort = errors.New("mfa: ciphertext too short")
	// ErrUnsupportedVersion indicates an unknown ciphertext version.
	ErrUnsupportedVersion = errors.New("mfa: unsupported ciphertext version")
	// ErrDecryptFailed hides whether the key, the scope or the bytes were wrong.
	ErrDecryptFailed = errors.New("mfa: decrypt failed")
)

// AESGCM implements Sealer with a single static key.
type AESGCM struct {
	aead   cipher.AEAD
	nonces random.Source
}

// NewAESGCM builds a sealer from a 32 byte key. Nonces come from nonces.
func NewAESGCM(key []byte, nonces random.Source) (*AESGCM, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrInvalidKeyLength, len(key), KeyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mfa: aes init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("mfa: gcm init: %w", err)
	}

	return &AESGCM{aead: aead, nonces: nonces}, nil
}

// Seal encrypts plaintext for scope.
func (a *AESGCM) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	nonce, err := a.nonces.Bytes(nonceSize)
	if err != nil {
		return nil, fmt.Errorf("mfa: nonce: %w", err)
	}

	out := make([]byte, headerLen, headerLen+len(plaintext)+a.aead.Overhead())
	binary.BigEndian.PutUint16(out[:2], version)
	copy(out[2:headerLen], nonce)

	return a.aead.Seal(out, nonce, plaintext, scope.aad()), nil
}

// Open decrypts ciphertext sealed for the same scope.
func (a *AESGCM) Open(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) < headerLen+a.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	if v := binary.BigEndian.Uint16(ciphertext[:2]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	plain, err := a.aead.Open(nil, ciphertext[2:headerLen], ciphertext[headerLen:], scope.aad())
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// SealSecret seals a TOTP secret for userID.
func SealSecret(s Sealer, secret otp.Secret, userID int64) ([]byte, error) {
	if secret.IsZero() {
		return nil, otp.ErrInvalidSecret
	}
	return s.Seal([]byte(secret.String()), OTPSeed(userID))
}

// OpenSecret opens and re-validates a TOTP secret sealed for userID.
func OpenSecret(s Sealer, sealed []byte, userID int64) (otp.Secret, error) {
	plain, err := s.Open(sealed, OTPSeed(userID))
	if err != nil {
		return otp.Secret{}, err
	}
	defer clear(plain)

	return otp.ParseSecret(string(plain))
}
