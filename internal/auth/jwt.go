// Package auth issues and validates the JWT bearer tokens that guard
// directory mutations.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// DefaultLeeway absorbs clock skew between the token issuer and validator.
const DefaultLeeway = 30 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmptyUserID  = errors.New("userID cannot be empty")
)

// Claims are the JWT claims this service issues: the registered set plus a
// typ claim separating access tokens from refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// JWTService signs and validates tokens. Signing always uses the current
// secret; validation also accepts the previous secret, so tokens issued
// before a secret rotation keep working until they expire.
type JWTService struct {
	secrets [][]byte // current first, then previous while rotating
	leeway  time.Duration
}

// NewJWTService returns a single-secret service with the default leeway.
func NewJWTService(secret string) *JWTService {
	return NewJWTServiceWithRotationAndLeeway(secret, "", DefaultLeeway)
}

// NewJWTServiceWithLeeway returns a single-secret service with custom leeway.
func NewJWTServiceWithLeeway(secret string, leeway time.Duration) *JWTService {
	return NewJWTServiceWithRotationAndLeeway(secret, "", leeway)
}

// NewJWTServiceWithRotation returns a dual-secret service for zero-downtime
// rotation. An empty previousSecret means no rotation is in progress.
func NewJWTServiceWithRotation(currentSecret, previousSecret string) *JWTService {
	return NewJWTServiceWithRotationAndLeeway(currentSecret, previousSecret, DefaultLeeway)
}

// NewJWTServiceWithRotationAndLeeway is the fully spelled-out constructor.
func NewJWTServiceWithRotationAndLeeway(currentSecret, previousSecret string, leeway time.Duration) *JWTService {
	secrets := [][]byte{[]byte(currentSecret)}
	if previousSecret != "" {
		secrets = append(secrets, []byte(previousSecret))
	}
	return &JWTService{secrets: secrets, leeway: leeway}
}

// GenerateAccessToken issues a short-lived token for API mutations.
func (s *JWTService) GenerateAccessToken(userID string) (string, error) {
	return s.issue(userID, TokenTypeAccess, AccessTokenExpiry)
}

// GenerateRefreshToken issues a long-lived token good only for minting new
// access tokens.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.issue(userID, TokenTypeRefresh, RefreshTokenExpiry)
}

func (s *JWTService) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secrets[0])
}

// ValidateToken parses and checks a token against the current secret, then
// against the previous one when a rotation is underway. Only HS256 tokens
// are accepted.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	var lastErr error
	for _, secret := range s.secrets {
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, ErrInvalidToken
			}
			return secret, nil
		}, jwt.WithLeeway(s.leeway))
		if err == nil {
			if claims, ok := token.Claims.(*Claims); ok && token.Valid {
				return claims, nil
			}
			return nil, ErrInvalidToken
		}
		lastErr = err
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}
