// Package password hashes and verifies credentials with bcrypt.
package password

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for every stored digest.
const DefaultCost = 12

// MinCost is the lowest work factor a Hasher accepts.
const MinCost = 10

var (
	ErrTooShort      = errors.New("password is too short")
	ErrNeedsVariety  = errors.New("password must contain letters and numbers")
	ErrTooLong       = errors.New("password exceeds 72 bytes")
	maxPasswordBytes = 72
)

// Hasher produces bcrypt digests at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs below MinCost are raised to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed or empty digest never matches.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Policy is the minimum strength accepted for new passwords.
type Policy struct {
	MinLength int
}

// Validate checks plaintext against the policy.
func (p Policy) Validate(plaintext string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = 8
	}
	if len([]rune(plaintext)) < minLength {
		return ErrTooShort
	}
	if len(plaintext) > maxPasswordBytes {
		return ErrTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrNeedsVariety
	}
	return nil
}
