// controllers/auth_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nkhalil/accounts_backend/middleware"
	"github.com/nkhalil/accounts_backend/models"
	"github.com/nkhalil/accounts_backend/repositories"
	"github.com/nkhalil/accounts_backend/services"
	"github.com/nkhalil/accounts_backend/utils"
)

// AuthController contains the registration and authentication logic
type AuthController struct {
	store     repositories.UserStore
	mailer    services.Mailer
	jwtSecret string
	logger    *log.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(store repositories.UserStore, mailer services.Mailer, jwtSecret string) *AuthController {
	return &AuthController{
		store:     store,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		logger:    log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
	}
}

// Register handles new account registration. Re-registering an existing
// unverified account refreshes its name, password and OTP challenge instead
// of creating a duplicate; a verified account is a conflict.
func (ac *AuthController) Register(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid request body",
		})
	}

	if req.Name == "" || req.Email == "" || req.Mobile == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "All fields are required",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid email format",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid email format",
		})
	}
	req.Email = email

	mobile, err := utils.SanitizeMobile(req.Mobile)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid mobile number format",
		})
	}
	req.Mobile = mobile
	req.Name = utils.SanitizeInput(req.Name)

	if !utils.ValidatePassword(req.Password) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: utils.PasswordPolicyMessage,
		})
	}

	existing, err := ac.store.FindByEmailOrMobile(ctx, req.Email, req.Mobile)
	if err != nil && err != repositories.ErrUserNotFound {
		ac.logger.Printf("Register: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	if existing != nil {
		if existing.IsVerified {
			return c.JSON(http.StatusBadRequest, models.Response{
				Message: "User already exists",
			})
		}
		return ac.reRegisterUnverified(ctx, c, existing, &req)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		ac.logger.Printf("Register: hashing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	otpInfo, err := utils.NewOTPInfo()
	if err != nil {
		ac.logger.Printf("Register: OTP generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	user := &models.User{
		Name:       req.Name,
		Email:      req.Email,
		Mobile:     req.Mobile,
		Password:   hashedPassword,
		IsVerified: false,
		OTPInfo:    &otpInfo,
	}

	if _, err := ac.store.Create(ctx, user); err != nil {
		ac.logger.Printf("Register: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	// The OTP stays stored if delivery fails; the user can ask for a resend.
	if err := ac.mailer.SendOTPEmail(user.Name, user.Email, otpInfo.OTP); err != nil {
		ac.logger.Printf("Register: OTP email failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Failed to send OTP email",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: "User registered successfully. OTP sent to email",
	})
}

// reRegisterUnverified refreshes an abandoned signup. The supplied password
// replaces the stored hash, since the retrying user means the password they
// just typed.
func (ac *AuthController) reRegisterUnverified(ctx context.Context, c echo.Context, existing *models.User, req *models.RegisterRequest) error {
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		ac.logger.Printf("Register: hashing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	otpInfo, err := utils.NewOTPInfo()
	if err != nil {
		ac.logger.Printf("Register: OTP generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	if err := ac.store.RefreshChallenge(ctx, existing.ID, req.Name, hashedPassword, otpInfo); err != nil {
		ac.logger.Printf("Register: challenge refresh failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Error in user registration",
		})
	}

	if err := ac.mailer.SendOTPEmail(req.Name, existing.Email, otpInfo.OTP); err != nil {
		ac.logger.Printf("Register: OTP email failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Failed to send OTP email",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Account not verified. Verification email sent successfully",
	})
}

// VerifyOTP confirms an email verification code, marks the account verified
// and mints a session token.
func (ac *AuthController) VerifyOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Email & OTP are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid email format",
		})
	}

	user, err := ac.store.FindByEmail(ctx, email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Message: "User not found",
			})
		}
		ac.logger.Printf("VerifyOTP: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	if user.OTPInfo == nil || user.OTPInfo.OTP != string(req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid OTP",
		})
	}

	if user.OTPInfo.Expired(time.Now()) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "OTP expired",
		})
	}

	if err := ac.store.MarkVerified(ctx, user.ID); err != nil {
		ac.logger.Printf("VerifyOTP: mark verified failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	token, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, ac.jwtSecret)
	if err != nil {
		ac.logger.Printf("VerifyOTP: token generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	return c.JSON(http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "OTP verified successfully",
		Token:   token,
		User:    user.Public(),
	})
}

// Login authenticates a verified account and mints a session token. The
// verification check runs after the password match, so an unverified account
// with the wrong password still reports invalid credentials.
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Email & Password are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid email format",
		})
	}

	user, err := ac.store.FindByEmail(ctx, email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Message: "User not found",
			})
		}
		ac.logger.Printf("Login: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid credentials",
		})
	}

	if !user.IsVerified {
		return c.JSON(http.StatusForbidden, models.Response{
			Message: "User not verified",
		})
	}

	token, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, ac.jwtSecret)
	if err != nil {
		ac.logger.Printf("Login: token generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	return c.JSON(http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    user.Public(),
	})
}

// Logout revokes the presented session token for its remaining lifetime.
func (ac *AuthController) Logout(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Message: "No token provided",
		})
	}

	claims, err := middleware.ParseToken(strings.TrimPrefix(authHeader, "Bearer "), ac.jwtSecret)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Message: "Invalid token",
		})
	}

	if err := middleware.RevokeToken(c.Request().Context(), claims); err != nil {
		// The token still ages out naturally; don't fail the logout.
		ac.logger.Printf("Logout: revocation failed: %v", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Logged out successfully",
	})
}

// StartOTPCleanup periodically drops expired OTP challenges.
func (ac *AuthController) StartOTPCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		cleared, err := ac.store.ClearExpiredOTPs(ctx)
		cancel()
		if err != nil {
			ac.logger.Printf("OTP cleanup failed: %v", err)
			continue
		}
		if cleared > 0 {
			ac.logger.Printf("Cleaned up %d expired OTPs", cleared)
		}
	}
}
