// Package auth verifies the HS256 platform tokens that identify callers.
// The token subject is the user ID; roles are always read from storage.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is invalid
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrInvalidSubject is returned when sub is not a user ID
	ErrInvalidSubject = errors.New("invalid subject")
)

// Claims represents the claims carried by a platform token
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// ParsedClaims represents parsed and validated claims
type ParsedClaims struct {
	UserID    uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds configuration for JWTValidator
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	// Leeway tolerates clock skew on exp, nbf and iat
	Leeway time.Duration
}

// JWTValidator validates HMAC-signed platform tokens
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
	now      func() time.Time
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(config Config) *JWTValidator {
	if config.Leeway == 0 {
		config.Leeway = 30 * time.Second
	}

	v := &JWTValidator{
		secret:   []byte(config.Secret),
		issuer:   config.Issuer,
		audience: config.Audience,
		now:      time.Now,
	}
	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	)
	return v
}

// ValidateToken validates a JWT token and returns parsed claims
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*ParsedClaims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}
	if v.audience != "" && !containsAudience(claims.Audience, v.audience) {
		return nil, ErrInvalidAudience
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}

	parsed := &ParsedClaims{
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	return parsed, nil
}

// Issue signs a token for userID valid for ttl. Used by the token
// subcommand and by tests.
func (v *JWTValidator) Issue(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func containsAudience(audiences jwt.ClaimStrings, expected string) bool {
	for _, aud := range audiences {
		if aud == expected {
			return true
		}
	}
	return false
}
