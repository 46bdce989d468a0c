package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"go-storefront/pkg/errors"
)

const (
	// SubjectKey holds the authenticated user id in the gin context
	SubjectKey = "subject"
	// RoleKey holds the authenticated user role in the gin context
	RoleKey = "role"

	// RoleAdmin is the role allowed to manage every order
	RoleAdmin = "admin"
)

// Claims are the bearer token claims issued by the accounts service
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Subject returns the user id, falling back to the standard sub claim
func (c *Claims) Subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// IsAdmin reports whether the token carries the admin role
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// ParseBearer validates an "Authorization: Bearer <token>" header value
func ParseBearer(secret []byte, header string) (*Claims, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, errors.NewUnauthorized("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.NewUnauthorized("invalid token")
	}
	if claims.Subject() == "" {
		return nil, errors.NewUnauthorized("token has no subject")
	}

	return claims, nil
}

// SignToken issues an HS256 token. Used by tooling and tests.
func SignToken(secret []byte, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Authenticate requires a valid bearer token and stores its subject and role
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseBearer(secret, c.GetHeader("Authorization"))
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(SubjectKey, claims.Subject())
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. Must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.Error(errors.NewForbidden("admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Subject returns the authenticated user id
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}

// IsAdmin reports whether the authenticated caller is an admin
func IsAdmin(c *gin.Context) bool {
	return c.GetString(RoleKey) == RoleAdmin
}
