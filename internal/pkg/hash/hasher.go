package hash

// PasswordHasher produces and checks stored password records.
type PasswordHasher interface {
	// Hash returns a new record for password with a fresh random salt.
	Hash(password string) (string, error)
	// Verify reports whether password matches record. The error is non-nil
	// only when record is malformed.
	Verify(record, password string) (bool, error)
}

// SaltSource supplies cryptographically random bytes.
type SaltSource interface {
	Bytes(n int) ([]byte, error)
}

// Bcrypt implements PasswordHasher with the $2a$ record format.
type Bcrypt struct {
	cost  int
	salts SaltSource
}

// NewBcrypt returns a bcrypt hasher. A cost of zero selects DefaultCost.
func NewBcrypt(cost int, salts SaltSource) *Bcrypt {
	if cost == 0 {
		cost = DefaultCost
	}

	return &Bcrypt{cost: cost, salts: salts}
}

// Validate reports a configured cost that Hash would reject.
func (h *Bcrypt) Validate() error {
	return CheckCost(h.cost)
}

// Hash hashes password with a 16 byte salt drawn from the salt source.
func (h *Bcrypt) Hash(password string) (string, error) {
	salt, err := h.salts.Bytes(SaltLen)
	if err != nil {
		return "", err
	}
	defer clear(salt)

	raw := []byte(password)
	defer clear(raw)

	return HashPassword(raw, salt, h.cost)
}

// Verify checks password against record.
func (h *Bcrypt) Verify(record, password string) (bool, error) {
	raw := []byte(password)
	defer clear(raw)

	return VerifyPassword(record, raw)
}
