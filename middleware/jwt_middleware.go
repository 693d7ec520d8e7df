// middleware/jwt_middleware.go
package middleware

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nkhalil/accounts_backend/config"
)

// TokenValidity is the fixed lifetime of a minted session token.
const TokenValidity = 7 * 24 * time.Hour

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}

	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}

	return nil
}

// GetJWTSecret returns the JWT secret from environment variables
func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET environment variable is required")
	}
	return secret
}

// GenerateJWT mints a signed session token for the given account. The token
// carries a unique jti so it can be revoked individually, and expires
// TokenValidity from issuance.
func GenerateJWT(userID, email, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret is required")
	}

	now := time.Now()
	claims := &JwtCustomClaims{
		UserID: userID,
		Email:  email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TokenValidity).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken parses and validates a signed session token.
func ParseToken(tokenString, secret string) (*JwtCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// RevokeToken adds a token's jti to the Redis revocation list until the token
// would have expired anyway. A nil Redis client is a no-op.
func RevokeToken(ctx context.Context, claims *JwtCustomClaims) error {
	client := config.GetRedisClient()
	if client == nil || claims.Id == "" {
		return nil
	}

	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}

	return client.Set(ctx, "revoked_token:"+claims.Id, "1", ttl).Err()
}

// IsTokenRevoked checks the Redis revocation list for the token's jti.
func IsTokenRevoked(ctx context.Context, claims *JwtCustomClaims) bool {
	client := config.GetRedisClient()
	if client == nil || claims.Id == "" {
		return false
	}

	n, err := client.Exists(ctx, "revoked_token:"+claims.Id).Result()
	if err != nil {
		// Fail open: an unreachable Redis must not lock everyone out.
		return false
	}
	return n > 0
}

// JWTMiddleware returns a configured JWT middleware
func JWTMiddleware() echo.MiddlewareFunc {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Printf("Warning: JWT_SECRET environment variable is not set")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "JWT configuration error")
			}
		}
	}

	return echomw.JWTWithConfig(echomw.JWTConfig{
		SigningKey: []byte(secret),
		Claims:     &JwtCustomClaims{},
		SuccessHandler: func(c echo.Context) {
			user := c.Get("user").(*jwt.Token)
			claims := user.Claims.(*JwtCustomClaims)

			if IsTokenRevoked(c.Request().Context(), claims) {
				c.Error(echo.NewHTTPError(echo.ErrUnauthorized.Code, "Token has been invalidated"))
				return
			}

			c.Set("userId", claims.UserID)
			c.Set("email", claims.Email)
		},
		ErrorHandler: func(err error) error {
			log.Printf("JWT middleware error: %v", err)
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Please provide valid credentials")
		},
	})
}

// GetUserFromToken extracts user claims from the validated JWT token
func GetUserFromToken(c echo.Context) *JwtCustomClaims {
	user := c.Get("user")
	if user == nil {
		return nil
	}

	token, ok := user.(*jwt.Token)
	if !ok {
		return nil
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}

	return claims
}

// ExtractUserID returns the authenticated account id set by the middleware.
func ExtractUserID(c echo.Context) (string, error) {
	if userID, ok := c.Get("userId").(string); ok && userID != "" {
		return userID, nil
	}

	claims := GetUserFromToken(c)
	if claims != nil && claims.UserID != "" {
		return claims.UserID, nil
	}

	return "", errors.New("invalid token")
}
