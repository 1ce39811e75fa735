package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// Claims carried by access tokens. Tokens are issued elsewhere; this service only verifies them.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies an HS256 bearer token and stores the subject and role in the context.
func Auth(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			Abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		var claims Claims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			Abort(c, http.StatusUnauthorized, "unauthorized", msg)
			return
		}
		if claims.Subject == "" {
			Abort(c, http.StatusUnauthorized, "unauthorized", "token has no subject")
			return
		}

		c.Set(KeyUserID, claims.Subject)
		c.Set(KeyUserRole, claims.Role)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(KeyUserRole) != RoleAdmin {
			Abort(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated subject set by Auth.
func UserID(c *gin.Context) string { return c.GetString(KeyUserID) }
