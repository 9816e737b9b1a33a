package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUserClaims is the key for JWT claims in gin context
	ContextKeyUserClaims = "user_claims"
)

// JWTClaims represents the claims in a JWT token.
type JWTClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig holds configuration for JWT authentication.
type AuthConfig struct {
	SecretKey      string        // JWT secret key
	ExpiryDuration time.Duration // Token expiry duration
	Issuer         string        // Token issuer
	TokenHeader    string        // Header name for token
	TokenPrefix    string        // Prefix before token (e.g., "Bearer ")
	SkipPaths      []string      // Paths that don't require authentication
}

// DefaultAuthConfig returns default authentication configuration.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		SecretKey:      "change-me-in-production",
		ExpiryDuration: 24 * time.Hour,
		Issuer:         "matchbook",
		TokenHeader:    "Authorization",
		TokenPrefix:    "Bearer ",
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/symbols",
		},
	}
}

// AuthMiddleware provides JWT authentication for gin.
type AuthMiddleware struct {
	config *AuthConfig
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(config *AuthConfig) *AuthMiddleware {
	if config == nil {
		config = DefaultAuthConfig()
	}
	return &AuthMiddleware{config: config}
}

// GinMiddleware returns the gin middleware handler function.
func (a *AuthMiddleware) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.shouldSkip(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader(a.config.TokenHeader)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing authorization header",
			})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, a.config.TokenPrefix)
		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": err.Error(),
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// GenerateToken creates a signed JWT for a user.
func (a *AuthMiddleware) GenerateToken(userID int64, username, role string) (string, error) {
	claims := &JWTClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.config.ExpiryDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.SecretKey))
}

// ValidateToken parses and validates a JWT, returning its claims.
func (a *AuthMiddleware) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.config.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (a *AuthMiddleware) shouldSkip(path string) bool {
	for _, skip := range a.config.SkipPaths {
		if path == skip || strings.HasPrefix(path, skip+"/") {
			return true
		}
	}
	return false
}
