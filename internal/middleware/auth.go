package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/utsavhq/vendormatch/internal/auth"
)

const bearerPrefix = "Bearer "

// VendorMutations reports whether the request writes to the vendor directory.
// It is the standard protect predicate for the Auth middleware: reads stay
// open, writes require a token.
func VendorMutations(r *http.Request) bool {
	if r.URL.Path != "/vendors" && !strings.HasPrefix(r.URL.Path, "/vendors/") {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Auth returns a middleware that requires a valid bearer access token on
// requests matched by protect. A nil protect guards every request. On success
// the token subject is recorded on the request scope so handlers and the
// logging middleware can attribute the request to a user.
func Auth(tokens *auth.JWTService, protect func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if protect != nil && !protect(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthFailed(w, r, "Authorization header is required")
				return
			}

			if !strings.HasPrefix(header, bearerPrefix) {
				writeAuthFailed(w, r, "Authorization header must use the Bearer scheme")
				return
			}

			tokenString := strings.TrimSpace(header[len(bearerPrefix):])
			if tokenString == "" {
				writeAuthFailed(w, r, "Bearer token is empty")
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				message := "Invalid access token"
				if errors.Is(err, auth.ErrExpiredToken) {
					message = "Access token has expired"
				}
				writeAuthFailed(w, r, message)
				return
			}

			// Refresh tokens are only good for minting new access tokens.
			if claims.Type != auth.TokenTypeAccess {
				writeAuthFailed(w, r, "Token is not an access token")
				return
			}

			if claims.Subject == "" {
				writeAuthFailed(w, r, "Token is missing a subject")
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthFailed(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="vendormatch"`)
	writeJSONError(w, r.Context(), http.StatusUnauthorized, "auth_failed", message)
}
