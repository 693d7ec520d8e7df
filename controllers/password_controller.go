// controllers/password_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nkhalil/accounts_backend/models"
	"github.com/nkhalil/accounts_backend/repositories"
	"github.com/nkhalil/accounts_backend/services"
	"github.com/nkhalil/accounts_backend/utils"
)

// PasswordController handles the forgotten-password flow and OTP re-delivery
type PasswordController struct {
	store  repositories.UserStore
	mailer services.Mailer
	logger *log.Logger
}

// NewPasswordController creates a new password controller
func NewPasswordController(store repositories.UserStore, mailer services.Mailer) *PasswordController {
	return &PasswordController{
		store:  store,
		mailer: mailer,
		logger: log.New(os.Stdout, "[PASSWORD] ", log.LstdFlags),
	}
}

// ResendOTP re-issues and re-sends the verification code.
func (pc *PasswordController) ResendOTP(c echo.Context) error {
	return pc.issueAndSendOTP(c)
}

// ForgotPassword starts the password reset flow. Same transition as
// ResendOTP: a fresh OTP is stored and mailed.
func (pc *PasswordController) ForgotPassword(c echo.Context) error {
	return pc.issueAndSendOTP(c)
}

// issueAndSendOTP replaces any stored OTP challenge with a fresh one and
// delivers it. Two concurrent calls race last-writer-wins; only the code that
// lands last stays valid.
func (pc *PasswordController) issueAndSendOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid request body",
		})
	}

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Email is required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid email format",
		})
	}

	user, err := pc.store.FindByEmail(ctx, email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			// A 400 on this path, matching the register/login surface is 404.
			return c.JSON(http.StatusBadRequest, models.Response{
				Message: "User does not exist",
			})
		}
		pc.logger.Printf("issueAndSendOTP: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Internal Server Error",
		})
	}

	otpInfo, err := utils.NewOTPInfo()
	if err != nil {
		pc.logger.Printf("issueAndSendOTP: OTP generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Failed to generate OTP",
		})
	}

	if err := pc.store.SetOTP(ctx, user.ID, otpInfo); err != nil {
		pc.logger.Printf("issueAndSendOTP: store failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Failed to save OTP information",
		})
	}

	// The stored OTP stays valid if delivery fails, so retrying is idempotent.
	if err := pc.mailer.SendOTPEmail(user.Name, user.Email, otpInfo.OTP); err != nil {
		pc.logger.Printf("issueAndSendOTP: email failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Failed to send OTP email",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Otp sent successfully",
	})
}

// ResetPassword sets a new password after validating the emailed OTP. The
// consumed OTP is cleared together with the password write so the code cannot
// be replayed inside its validity window.
func (pc *PasswordController) ResetPassword(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "All fields are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid email format",
		})
	}

	user, err := pc.store.FindByEmail(ctx, email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusBadRequest, models.Response{
				Message: "User does not exist",
			})
		}
		pc.logger.Printf("ResetPassword: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Internal Server Error",
		})
	}

	if user.OTPInfo == nil || user.OTPInfo.OTP != string(req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid Otp",
		})
	}

	if user.OTPInfo.Expired(time.Now()) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Otp has expired",
		})
	}

	if !utils.ValidatePassword(req.Password) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: utils.PasswordPolicyMessage,
		})
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		pc.logger.Printf("ResetPassword: hashing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Internal Server Error",
		})
	}

	if err := pc.store.ResetPassword(ctx, user.ID, hashedPassword); err != nil {
		pc.logger.Printf("ResetPassword: update failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Failed to update password",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Password reset successfully",
	})
}
