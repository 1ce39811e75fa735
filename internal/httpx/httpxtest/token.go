// Package httpxtest signs bearer tokens for handler tests.
package httpxtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MikeMC777/ecom-checkout/internal/httpx"
)

func Token(t testing.TB, secret []byte, userID, role string) string {
	t.Helper()
	return TokenExpiring(t, secret, userID, role, time.Now().Add(time.Hour))
}

func TokenExpiring(t testing.TB, secret []byte, userID, role string, exp time.Time) string {
	t.Helper()
	claims := httpx.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
