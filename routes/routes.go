package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/nkhalil/accounts_backend/controllers"
	"github.com/nkhalil/accounts_backend/middleware"
)

// SetupRoutes wires the account lifecycle endpoints. /profile and
// /change-password sit behind the JWT middleware; everything else is public.
func SetupRoutes(e *echo.Echo, authController *controllers.AuthController, userController *controllers.UserController, passwordController *controllers.PasswordController) {
	// Public routes
	e.POST("/register", authController.Register)
	e.POST("/login", authController.Login)
	e.POST("/verify-otp", authController.VerifyOTP)
	e.POST("/logout", authController.Logout)
	e.POST("/resend-otp", passwordController.ResendOTP)
	e.POST("/forgot-password", passwordController.ForgotPassword)
	e.POST("/reset-password", passwordController.ResetPassword)

	// Protected routes
	r := e.Group("")
	r.Use(middleware.JWTMiddleware())
	r.GET("/profile", userController.GetProfile)
	r.POST("/change-password", userController.ChangePassword)
}
