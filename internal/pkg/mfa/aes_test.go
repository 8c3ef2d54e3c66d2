package mfa

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/random"
)

var testKey = bytes.Repeat([]byte{0x42}, KeyLen)

func newTestSealer(t *testing.T) *AESGCM {
	t.Helper()

	s, err := NewAESGCM(testKey, random.New())
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}
	return s
}

func TestNewAESGCM_KeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		// Act
		_, err := NewAESGCM(make([]byte, n), random.New())

		// Assert
		if !errors.Is(err, ErrInvalidKeyLength) {
			t.Fatalf("NewAESGCM(%d bytes) error = %v, want ErrInvalidKeyLength", n, err)
		}
	}
}

func TestAESGCM_RoundTrip(t *testing.T) {
	// Arrange
	s := newTestSealer(t)
	scope := OTPSeed(7)

	// Act
	sealed, err := s.Seal([]byte("abcdefghijklmnop"), scope)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	plain, err := s.Open(sealed, scope)

	// Assert
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(plain) != "abcdefghijklmnop" {
		t.Fatalf("Open() = %q", plain)
	}
	if len(sealed) != headerLen+16+16 {
		t.Fatalf("len(sealed) = %d, want %d", len(sealed), headerLen+32)
	}
}

func TestAESGCM_DeterministicNonce(t *testing.T) {
	// Arrange
	nonce := bytes.Repeat([]byte{0x01}, nonceSize)
	s, err := NewAESGCM(testKey, random.NewFromReader(bytes.NewReader(append(nonce, nonce...))))
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}

	// Act
	a, errA := s.Seal([]byte("x"), OTPSeed(1))
	b, errB := s.Seal([]byte("x"), OTPSeed(1))

	// Assert
	if errA != nil || errB != nil {
		t.Fatalf("Seal() errors = %v, %v", errA, errB)
	}
	if !bytes.Equal(a[2:headerLen], nonce) {
		t.Fatalf("nonce = %x, want %x", a[2:headerLen], nonce)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same key, nonce, scope and plaintext produced different ciphertexts")
	}
}

func TestAESGCM_OpenFailures(t *testing.T) {
	s := newTestSealer(t)
	sealed, err := s.Seal([]byte("abcdefghijklmnop"), OTPSeed(7))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0x01

	badVersion := bytes.Clone(sealed)
	badVersion[1] = 9

	other, err := NewAESGCM(bytes.Repeat([]byte{0x24}, KeyLen), random.New())
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}

	tests := []struct {
		name    string
		sealer  *AESGCM
		in      []byte
		scope   Scope
		wantErr error
	}{
		{name: "other user", sealer: s, in: sealed, scope: OTPSeed(8), wantErr: ErrDecryptFailed},
		{name: "other purpose", sealer: s, in: sealed, scope: Scope{UserID: 7, Purpose: "other"}, wantErr: ErrDecryptFailed},
		{name: "other key", sealer: other, in: sealed, scope: OTPSeed(7), wantErr: ErrDecryptFailed},
		{name: "tampered", sealer: s, in: tampered, scope: OTPSeed(7), wantErr: ErrDecryptFailed},
		{name: "bad version", sealer: s, in: badVersion, scope: OTPSeed(7), wantErr: ErrUnsupportedVersion},
		{name: "too short", sealer: s, in: sealed[:headerLen], scope: OTPSeed(7), wantErr: ErrCiphertextTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			_, err := tt.sealer.Open(tt.in, tt.scope)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAESGCM_SealEmpty(t *testing.T) {
	// Act
	_, err := newTestSealer(t).Seal(nil, OTPSeed(1))

	// Assert
	if !errors.Is(err, ErrPlaintextEmpty) {
		t.Fatalf("Seal(nil) error = %v, want ErrPlaintextEmpty", err)
	}
}

func TestSealSecret(t *testing.T) {
	// Arrange
	s := newTestSealer(t)
	secret, err := otp.ParseSecret("abcdefghijklmnop")
	if err != nil {
		t.Fatalf("ParseSecret() error = %v", err)
	}

	// Act
	sealed, err := SealSecret(s, secret, 42)
	if err != nil {
		t.Fatalf("SealSecret() error = %v", err)
	}
	got, err := OpenSecret(s, sealed, 42)

	// Assert
	if err != nil {
		t.Fatalf("OpenSecret() error = %v", err)
	}
	if got != secret {
		t.Fatalf("OpenSecret() = %v, want %v", got.String(), secret.String())
	}
	if _, err := SealSecret(s, otp.Secret{}, 42); !errors.Is(err, otp.ErrInvalidSecret) {
		t.Fatalf("SealSecret(zero) error = %v, want otp.ErrInvalidSecret", err)
	}
	if _, err := OpenSecret(s, sealed, 43); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("OpenSecret(other user) error = %v, want ErrDecryptFailed", err)
	}
}
