package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSecret is shaped like a deployed secret: 32 random bytes, base64.
const testSecret = "m4Xz0Qr7TkCpW2uHl9aY5sNfB8dVjE3gR6oKxI1cZtA="

func signClaims(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	tokenString, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tokenString
}

func expiredClaims(subject string, expiredBy time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now.Add(-3 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-expiredBy)),
		},
		Type: TokenTypeAccess,
	}
}

func TestGenerateTokens(t *testing.T) {
	svc := NewJWTService(testSecret)

	generators := map[string]func(string) (string, error){
		"access":  svc.GenerateAccessToken,
		"refresh": svc.GenerateRefreshToken,
	}

	for name, generate := range generators {
		t.Run(name, func(t *testing.T) {
			token, err := generate("planner-123")
			if err != nil {
				t.Fatalf("generate error = %v", err)
			}
			if token == "" {
				t.Error("generated token is empty")
			}

			if _, err := generate(""); err != ErrEmptyUserID {
				t.Errorf("empty userID error = %v, want %v", err, ErrEmptyUserID)
			}
		})
	}
}

func TestRoundTripClaims(t *testing.T) {
	svc := NewJWTService(testSecret)

	tests := []struct {
		name     string
		generate func(string) (string, error)
		wantType string
		ttl      time.Duration
	}{
		{"access", svc.GenerateAccessToken, TokenTypeAccess, AccessTokenExpiry},
		{"refresh", svc.GenerateRefreshToken, TokenTypeRefresh, RefreshTokenExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now().Add(-time.Second)
			token, err := tt.generate("planner-123")
			if err != nil {
				t.Fatalf("generate error = %v", err)
			}
			after := time.Now().Add(time.Second)

			claims, err := svc.ValidateToken(token)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.Subject != "planner-123" {
				t.Errorf("Subject = %q, want planner-123", claims.Subject)
			}
			if claims.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", claims.Type, tt.wantType)
			}
			if claims.IssuedAt == nil || claims.ExpiresAt == nil {
				t.Fatal("IssuedAt or ExpiresAt claim missing")
			}
			issued := claims.IssuedAt.Time
			if issued.Before(before) || issued.After(after) {
				t.Errorf("IssuedAt = %v, want between %v and %v", issued, before, after)
			}
			if want := issued.Add(tt.ttl); !claims.ExpiresAt.Time.Equal(want) {
				t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Time, want)
			}
		})
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewJWTService(testSecret)

	good, err := svc.GenerateAccessToken("planner-123")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	parts := strings.Split(good, ".")
	if len(parts) != 3 {
		t.Fatalf("token %q is not header.payload.signature", good)
	}

	foreign, err := NewJWTService("a-different-secret-123456").GenerateAccessToken("planner-123")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	now := time.Now()
	hs512 := signClaims(t, testSecret, jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "planner-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Type: TokenTypeAccess,
	})

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-valid-token"},
		{"empty", ""},
		{"tampered signature", parts[0] + "." + parts[1] + ".tamperedsignature"},
		{"signed with another secret", foreign},
		{"wrong signing method", hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); err != ErrInvalidToken {
				t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
			}
		})
	}
}

func TestExpiryAndLeeway(t *testing.T) {
	longGone := signClaims(t, testSecret, jwt.SigningMethodHS256, expiredClaims("planner-expired", time.Hour))
	justExpired := signClaims(t, testSecret, jwt.SigningMethodHS256, expiredClaims("planner-leeway", 10*time.Second))

	t.Run("expired past any leeway", func(t *testing.T) {
		svc := NewJWTService(testSecret)
		if _, err := svc.ValidateToken(longGone); err != ErrExpiredToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrExpiredToken)
		}
	})

	t.Run("inside the default leeway", func(t *testing.T) {
		svc := NewJWTService(testSecret)
		if _, err := svc.ValidateToken(justExpired); err != nil {
			t.Errorf("ValidateToken() error = %v, want acceptance within leeway", err)
		}
	})

	t.Run("no leeway", func(t *testing.T) {
		svc := NewJWTServiceWithLeeway(testSecret, 0)
		if _, err := svc.ValidateToken(justExpired); err != ErrExpiredToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrExpiredToken)
		}
	})
}

func TestSecretRotation(t *testing.T) {
	const (
		currentSecret  = "signing-key-2026-08-current!"
		previousSecret = "signing-key-2026-02-retired!"
	)
	rotated := NewJWTServiceWithRotation(currentSecret, previousSecret)

	t.Run("current-secret token validates", func(t *testing.T) {
		token, err := rotated.GenerateAccessToken("planner-123")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		claims, err := rotated.ValidateToken(token)
		if err != nil {
			t.Fatalf("ValidateToken() error = %v", err)
		}
		if claims.Subject != "planner-123" {
			t.Errorf("Subject = %q, want planner-123", claims.Subject)
		}
	})

	t.Run("previous-secret token still validates", func(t *testing.T) {
		oldToken, err := NewJWTService(previousSecret).GenerateAccessToken("planner-456")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		claims, err := rotated.ValidateToken(oldToken)
		if err != nil {
			t.Fatalf("ValidateToken() error = %v, want pre-rotation token accepted", err)
		}
		if claims.Subject != "planner-456" {
			t.Errorf("Subject = %q, want planner-456", claims.Subject)
		}
	})

	t.Run("new tokens are signed with the current secret", func(t *testing.T) {
		token, err := rotated.GenerateAccessToken("planner-789")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := NewJWTService(currentSecret).ValidateToken(token); err != nil {
			t.Errorf("current-only service rejected a fresh token: %v", err)
		}
		if _, err := NewJWTService(previousSecret).ValidateToken(token); err != ErrInvalidToken {
			t.Errorf("previous-only service error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("foreign token fails both secrets", func(t *testing.T) {
		foreign, err := NewJWTService("wrong-secret-key-99999999").GenerateAccessToken("planner-wrong")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := rotated.ValidateToken(foreign); err != ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("empty previous secret means single-secret service", func(t *testing.T) {
		svc := NewJWTServiceWithRotation(currentSecret, "")
		token, err := svc.GenerateAccessToken("planner-single")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := svc.ValidateToken(token); err != nil {
			t.Errorf("ValidateToken() error = %v", err)
		}
	})
}

func TestRotationWithLeeway(t *testing.T) {
	const (
		currentSecret  = "leeway-key-2026-08-current!!"
		previousSecret = "leeway-key-2026-02-retired!!"
	)

	// Signed with the previous secret and expired 10 seconds ago, so
	// acceptance requires both the rotation fallback and the leeway.
	tokenString := signClaims(t, previousSecret, jwt.SigningMethodHS256,
		expiredClaims("planner-expired-leeway", 10*time.Second))

	t.Run("leeway covers the expiry", func(t *testing.T) {
		svc := NewJWTServiceWithRotationAndLeeway(currentSecret, previousSecret, 30*time.Second)
		if _, err := svc.ValidateToken(tokenString); err != nil {
			t.Errorf("ValidateToken() error = %v, want acceptance within leeway", err)
		}
	})

	t.Run("no leeway rejects as expired", func(t *testing.T) {
		svc := NewJWTServiceWithRotationAndLeeway(currentSecret, previousSecret, 0)
		if _, err := svc.ValidateToken(tokenString); err != ErrExpiredToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrExpiredToken)
		}
	})
}
