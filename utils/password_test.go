package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Abcdef1!")
	require.NoError(t, err)

	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "Abcdef1!", hash)
	assert.NoError(t, CheckPassword("Abcdef1!", hash))
	assert.Error(t, CheckPassword("wrong-password", hash))
}

func TestHashPassword_SaltedDigests(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("Abcdef1!")
	require.NoError(t, err)
	second, err := HashPassword("Abcdef1!")
	require.NoError(t, err)

	// Per-call random salt means two hashes of the same input differ.
	assert.NotEqual(t, first, second)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"valid", "Abcdef1!", true},
		{"too short", "Ab1!", false},
		{"no uppercase", "abcdef1!", false},
		{"no lowercase", "ABCDEF1!", false},
		{"no digit", "Abcdefg!", false},
		{"no special character", "Abcdefg1", false},
		{"empty", "", false},
		{"weak", "abc", false},
		{"all special chars accepted", "Xyzabc1@", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password))
		})
	}
}
