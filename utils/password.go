// utils/password.go
package utils

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	numericalRegex   = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*]`)
)

// PasswordPolicyMessage is returned to the client when a password fails the
// strength policy.
const PasswordPolicyMessage = "Password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one special character."

// HashPassword hashes a plaintext password with bcrypt. The salt is embedded
// in the digest.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt digest.
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword enforces the password strength policy: at least 8
// characters with one uppercase letter, one lowercase letter, one digit and
// one special character from !@#$%^&*.
func ValidatePassword(password string) bool {
	return len(password) >= 8 &&
		uppercaseRegex.MatchString(password) &&
		lowercaseRegex.MatchString(password) &&
		numericalRegex.MatchString(password) &&
		specialCharRegex.MatchString(password)
}
