package main

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/nkhalil/accounts_backend/config"
	"github.com/nkhalil/accounts_backend/controllers"
	"github.com/nkhalil/accounts_backend/middleware"
	"github.com/nkhalil/accounts_backend/repositories"
	"github.com/nkhalil/accounts_backend/routes"
	"github.com/nkhalil/accounts_backend/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (revoked token store)
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Accounts backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// The signing secret is read once here and injected into the controllers.
	jwtSecret := middleware.GetJWTSecret()

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(config.GetCollection(client, "users"))

	mailer, err := services.NewSMTPMailer()
	if err != nil {
		log.Fatal("Mailer configuration error: ", err)
	}

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo, mailer, jwtSecret)
	userController := controllers.NewUserController(userRepo)
	passwordController := controllers.NewPasswordController(userRepo, mailer)

	// Setup routes
	routes.SetupRoutes(e, authController, userController, passwordController)

	// Drop expired OTP challenges in the background
	go authController.StartOTPCleanup(5 * time.Minute)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
