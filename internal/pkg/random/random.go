package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// ErrEmptyAlphabet is returned when Sample is called with no symbols.
var ErrEmptyAlphabet = errors.New("random: empty alphabet")

// Sampler picks symbols uniformly from an alphabet.
type Sampler interface {
	Sample(alphabet string, n int) (string, error)
}

// Source produces raw random bytes.
type Source interface {
	Bytes(n int) ([]byte, error)
}

// Crypto implements Sampler and Source over a cryptographic reader.
type Crypto struct {
	reader io.Reader
}

// New returns a Crypto backed by crypto/rand.
func New() *Crypto {
	return &Crypto{reader: rand.Reader}
}

// NewFromReader is used by tests that need a replayable stream.
func NewFromReader(r io.Reader) *Crypto {
	return &Crypto{reader: r}
}

// Sample returns n symbols drawn uniformly and independently from alphabet.
func (c *Crypto) Sample(alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", ErrEmptyAlphabet
	}

	var sb strings.Builder
	sb.Grow(n)

	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(c.reader, limit)
		if err != nil {
			return "", fmt.Errorf("random: sample: %w", err)
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}

	return sb.String(), nil
}

// Bytes returns n random bytes.
func (c *Crypto) Bytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(c.reader, out); err != nil {
		return nil, fmt.Errorf("random: read: %w", err)
	}

	return out, nil
}
