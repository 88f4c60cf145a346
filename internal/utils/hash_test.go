package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong-pass"))
}

func TestLegacyHashDetection(t *testing.T) {
	sum := sha256.Sum256([]byte("legacy-pass"))
	legacy := hex.EncodeToString(sum[:])

	assert.True(t, IsLegacyHash(legacy))
	assert.True(t, CheckLegacyPassword(legacy, "legacy-pass"))
	assert.False(t, CheckLegacyPassword(legacy, "other"))

	bcryptHash, err := HashPassword("whatever")
	require.NoError(t, err)
	assert.False(t, IsLegacyHash(bcryptHash))
}

func TestOtpHash(t *testing.T) {
	stored := HashOtp("salt", "13800000000", "123456")

	assert.True(t, CheckOtp("salt", "13800000000", "123456", stored))
	assert.False(t, CheckOtp("salt", "13800000000", "654321", stored))
	assert.False(t, CheckOtp("other-salt", "13800000000", "123456", stored))
	assert.False(t, CheckOtp("salt", "13900000000", "123456", stored))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("13800000000"))
	assert.True(t, ValidPhone("19912345678"))
	assert.False(t, ValidPhone("12800000000"))
	assert.False(t, ValidPhone("1380000000"))
	assert.False(t, ValidPhone("138000000000"))
	assert.False(t, ValidPhone("23800000000"))
	assert.False(t, ValidPhone("1380000000a"))
}
