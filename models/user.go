// models/user.go
package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPCode is a verification code as submitted by a client. Some clients send
// the code as a bare JSON number instead of a string; both decode to the
// string form the challenge is compared against.
type OTPCode string

func (o *OTPCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = OTPCode(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*o = OTPCode(n.String())
	return nil
}

// OTPInfo is the pending email verification challenge attached to a user.
// A nil OTPInfo means no challenge is outstanding; code and expiry always
// travel together.
type OTPInfo struct {
	OTP       string    `json:"otp" bson:"otp"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// Expired reports whether the challenge is past its validity window.
func (o *OTPInfo) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// User model
type User struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	Email      string             `json:"email" bson:"email"`
	Mobile     string             `json:"mobile" bson:"mobile"`
	Password   string             `json:"-" bson:"password"`
	IsVerified bool               `json:"isVerified" bson:"isVerified"`
	OTPInfo    *OTPInfo           `json:"-" bson:"otpInfo,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is the projection returned on auth responses. It never carries
// the password hash or OTP fields.
type PublicUser struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// Public returns the safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		Name:   u.Name,
		Email:  u.Email,
		Mobile: u.Mobile,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyOTPRequest struct {
	Email string  `json:"email"`
	OTP   OTPCode `json:"otp"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	OTP      OTPCode `json:"otp"`
}

// Response is the generic API envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse is returned when an operation mints a session token.
type AuthResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    PublicUser `json:"user"`
}
