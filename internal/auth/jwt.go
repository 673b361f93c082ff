// Package auth provides the session machinery for the Salesforce login flow:
// JWT access tokens, the cookie middleware that validates them, and password
// utilities for provisioned accounts.
//
// Session flow:
//  1. The Salesforce callback completes and the account is linked
//  2. The server issues a JWT access token, stored in an HttpOnly cookie
//  3. On subsequent API calls, RequireAuth reads the cookie, validates the
//     JWT, and sets the userID in the request context
//
// The token is stateless — the user ID and expiry live inside the signed
// token, so validation needs no store lookup, only the HMAC secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the HttpOnly cookie carrying the access token.
const SessionCookie = "token"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims; the "sub"
// (Subject) claim carries the internal user ID.
type claims struct {
	jwt.RegisteredClaims
}

// sessionLifetime bounds how long an issued session token stays valid.
// After expiry the user goes back through the Salesforce flow.
const sessionLifetime = 15 * time.Minute

// Generate creates and signs a new JWT access token for the given userID,
// valid for sessionLifetime. Signing is HS256 (HMAC-SHA256, symmetric).
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, sessionLifetime)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests for issuing already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    "sflogin",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string.
// Returns the userID (the "sub" claim) if the token is valid.
//
// jwt.ParseWithClaims verifies the signature and the registered time claims
// (exp, iat) in one step; WithValidMethods pins the algorithm so a token
// that claims "none" or an RSA method is rejected outright.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("auth: parsing token: %w", err)
	}

	if !token.Valid {
		return "", errors.New("auth: invalid token")
	}

	if c.Subject == "" {
		return "", errors.New("auth: token has no subject claim")
	}

	return c.Subject, nil
}
