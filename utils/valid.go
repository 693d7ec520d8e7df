// utils/valid.go
package utils

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
)

// SanitizeInput sanitizes user input to prevent XSS and injection attacks
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = html.EscapeString(input)

	// Remove control characters
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)

	return input
}

// SanitizeEmail sanitizes and validates an email address
func SanitizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	if !emailRegex.MatchString(email) {
		return "", errors.New("invalid email format")
	}

	return email, nil
}

// SanitizeMobile sanitizes and validates a mobile number
func SanitizeMobile(mobile string) (string, error) {
	mobile = nonPhoneChars.ReplaceAllString(mobile, "")
	if mobile == "" {
		return "", errors.New("invalid mobile number")
	}

	if len(mobile) < 3 || len(mobile) > 15 {
		return "", errors.New("invalid mobile number length")
	}

	return mobile, nil
}
