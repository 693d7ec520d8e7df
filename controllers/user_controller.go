// controllers/user_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nkhalil/accounts_backend/middleware"
	"github.com/nkhalil/accounts_backend/models"
	"github.com/nkhalil/accounts_backend/repositories"
	"github.com/nkhalil/accounts_backend/utils"
)

// UserController handles profile and credential management for
// authenticated users
type UserController struct {
	store  repositories.UserStore
	logger *log.Logger
}

// NewUserController creates a new user controller
func NewUserController(store repositories.UserStore) *UserController {
	return &UserController{
		store:  store,
		logger: log.New(os.Stdout, "[USER] ", log.LstdFlags),
	}
}

// GetProfile returns the authenticated user's account without the password
// hash or OTP fields.
func (uc *UserController) GetProfile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Message: "Unauthorized",
		})
	}

	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Message: "Invalid user ID",
		})
	}

	user, err := uc.store.FindByID(ctx, objID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Message: "User not found",
			})
		}
		uc.logger.Printf("GetProfile: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "User profile fetched successfully",
		Data:    user,
	})
}

// ChangePassword rotates the password after verifying the current one.
func (uc *UserController) ChangePassword(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.OldPassword == "" || req.NewPassword == "" {
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

	user, err := uc.store.FindByEmail(ctx, email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Message: "User not found",
			})
		}
		uc.logger.Printf("ChangePassword: lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	if err := utils.CheckPassword(req.OldPassword, user.Password); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: "Old password is incorrect",
		})
	}

	if !utils.ValidatePassword(req.NewPassword) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Message: utils.PasswordPolicyMessage,
		})
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		uc.logger.Printf("ChangePassword: hashing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	if err := uc.store.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		uc.logger.Printf("ChangePassword: update failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Message: "Server error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Password changed successfully",
	})
}
