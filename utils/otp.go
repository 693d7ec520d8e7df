// utils/otp.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/nkhalil/accounts_backend/models"
)

// OTPValidity is how long an issued code can be used.
const OTPValidity = 10 * time.Minute

// GenerateOTP returns a uniformly random 6-digit code (100000-999999).
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewOTPInfo issues a fresh challenge expiring OTPValidity from now.
func NewOTPInfo() (models.OTPInfo, error) {
	otp, err := GenerateOTP()
	if err != nil {
		return models.OTPInfo{}, err
	}
	return models.OTPInfo{
		OTP:       otp,
		ExpiresAt: time.Now().Add(OTPValidity),
	}, nil
}
