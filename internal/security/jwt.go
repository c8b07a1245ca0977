package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// Token scopes separate storefront sessions from back-office sessions.
const (
	// ScopeStorefront marks tokens issued by the front login.
	ScopeStorefront = "storefront"
	// ScopeBackOffice marks tokens issued by the admin login after MFA.
	ScopeBackOffice = "back-office"
)

// Claims defines JWT claims for customers and staff.
type Claims struct {
	CustomerID uint64 `json:"customer_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Scope      string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the customer with the given scope and expiry.
func GenerateToken(secret, scope string, customerID uint64, email, role string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		CustomerID: customerID,
		Email:      email,
		Role:       role,
		Scope:      scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT and requires the expected scope.
func ParseToken(secret, scope, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Scope != scope || claims.CustomerID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
