package service

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// argon2idHash encodes password the way the legacy store did.
func argon2idHash(t *testing.T, password string) string {
	t.Helper()
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte(password), salt, 1, 1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("pass123")
	require.NoError(t, err)
	assert.NotEqual(t, "pass123", hash)
	assert.True(t, h.Verify("pass123", hash))
	assert.False(t, h.Verify("pass124", hash))
	assert.False(t, h.Verify("", hash))
	assert.False(t, h.Verify("pass123", ""))
}

func TestPasswordHasher_SaltsDiffer(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_RejectsEmpty(t *testing.T) {
	_, err := NewPasswordHasher(bcrypt.MinCost).Hash("")
	assert.Error(t, err)
}

func TestPasswordHasher_MaxLength(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	pw := strings.Repeat("x", MaxPasswordBytes)

	hash, err := h.Hash(pw)
	require.NoError(t, err)
	assert.True(t, h.Verify(pw, hash))
}

func TestPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}

func TestPasswordHasher_VerifiesArgon2id(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash := argon2idHash(t, "legacy-pass")

	assert.True(t, h.Verify("legacy-pass", hash))
	assert.False(t, h.Verify("other", hash))
}

func TestPasswordHasher_RejectsCorruptArgon2id(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	good := argon2idHash(t, "pw")
	parts := strings.Split(good, "$")

	cases := map[string]string{
		"missing part": strings.Join(parts[:5], "$"),
		"bad version":  strings.Replace(good, "v=19", "v=16", 1),
		"bad params":   strings.Replace(good, "m=1024,t=1,p=1", "m=x", 1),
		"bad salt":     "$argon2id$" + parts[2] + "$" + parts[3] + "$!!!$" + parts[5],
		"empty key":    "$argon2id$" + parts[2] + "$" + parts[3] + "$" + parts[4] + "$",
	}
	for name, hash := range cases {
		assert.False(t, h.Verify("pw", hash), name)
	}
}

func TestPasswordHasher_NeedsRehash(t *testing.T) {
	low := NewPasswordHasher(bcrypt.MinCost)
	high := NewPasswordHasher(bcrypt.MinCost + 1)

	hash, err := low.Hash("pw")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, high.NeedsRehash(hash))
	assert.True(t, low.NeedsRehash(argon2idHash(t, "pw")))
	assert.True(t, low.NeedsRehash("garbage"))
}
