package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(MinCost)

	digest, err := h.Hash("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", digest)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, MinCost, cost)

	assert.True(t, h.Verify("pw123456", digest))
	assert.False(t, h.Verify("pw123457", digest))
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher(MinCost)
	a, err := h.Hash("same-input-1")
	require.NoError(t, err)
	b, err := h.Hash("same-input-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := NewHasher(MinCost)
	assert.False(t, h.Verify("anything1", ""))
	assert.False(t, h.Verify("anything1", "not-a-bcrypt-digest"))
	assert.False(t, h.Verify("anything1", "$2a$12$short"))
}

func TestNewHasherRejectsWeakCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(4).cost)
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, 11, NewHasher(11).cost)
}

func TestHashRejectsOverlongInput(t *testing.T) {
	_, err := NewHasher(MinCost).Hash(strings.Repeat("a1", 40))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestPolicyValidate(t *testing.T) {
	p := Policy{MinLength: 8}

	assert.NoError(t, p.Validate("abcdefg1"))
	assert.ErrorIs(t, p.Validate("abc1"), ErrTooShort)
	assert.ErrorIs(t, p.Validate("abcdefgh"), ErrNeedsVariety)
	assert.ErrorIs(t, p.Validate("12345678"), ErrNeedsVariety)
	assert.NoError(t, Policy{}.Validate("letters9"))
}
