package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// IsLegacyHash reports whether the stored hash uses the unsalted sha256
// scheme from the first deployment. Those accounts are migrated to bcrypt
// on their next successful login.
func IsLegacyHash(hashedPassword string) bool {
	if strings.HasPrefix(hashedPassword, "$2a$") || strings.HasPrefix(hashedPassword, "$2b$") {
		return false
	}
	return len(hashedPassword) == 64
}

// CheckLegacyPassword compares an unsalted sha256 hex digest with a plaintext password.
func CheckLegacyPassword(hashedPassword, password string) bool {
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(hashedPassword)) == 1
}

// HashOtp returns the salted HMAC-SHA256 digest under which OTP codes are stored.
func HashOtp(salt, phone, code string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(phone))
	mac.Write([]byte(":"))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckOtp compares a stored OTP hash with a submitted code.
func CheckOtp(salt, phone, code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashOtp(salt, phone, code)), []byte(storedHash)) == 1
}
