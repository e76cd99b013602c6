package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"photogram/internal/httputil"
	"photogram/internal/model"
	"photogram/internal/service"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// AccountIDKey is the context key for the authenticated account's ID
	AccountIDKey contextKey = "account_id"
	// AccountKey is the context key for the authenticated account's summary
	AccountKey contextKey = "account"
)

// Authenticator resolves a presented credential to the acting account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.AccountSummary, error)
}

// AuthMiddleware creates a middleware that resolves the caller's token to an account.
// Checks Authorization header first (for mobile), then falls back to cookie (for web)
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)

			// No token found in either location
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			account, err := auth.Authenticate(r.Context(), tokenString)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
				case errors.Is(err, model.ErrAccountNotFound):
					httputil.WriteUnauthorizedWithCode(w, model.CodeAccountNotFound, "Account no longer exists")
				case errors.Is(err, model.ErrUnauthenticated):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				default:
					httputil.WriteServiceError(w, err, "Failed to authenticate")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
		})
	}
}

// OptionalAuthMiddleware attaches the account when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := tokenFromRequest(r); tokenString != "" {
				if account, err := auth.Authenticate(r.Context(), tokenString); err == nil {
					r = r.WithContext(withAccount(r.Context(), account))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	// 1. Try Authorization header first (mobile apps)
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// 2. Fall back to cookie (web browsers)
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func withAccount(ctx context.Context, account *model.AccountSummary) context.Context {
	ctx = context.WithValue(ctx, AccountIDKey, account.ID)
	return context.WithValue(ctx, AccountKey, account)
}

// GetAccountIDFromContext extracts the account ID from the request context
// Returns the account ID and true if found, or 0 and false if not found
func GetAccountIDFromContext(ctx context.Context) (int64, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(int64)
	return accountID, ok
}

// GetAccountFromContext returns the authenticated account's display summary.
func GetAccountFromContext(ctx context.Context) (*model.AccountSummary, bool) {
	account, ok := ctx.Value(AccountKey).(*model.AccountSummary)
	return account, ok
}
