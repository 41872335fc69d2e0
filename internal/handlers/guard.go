package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/types"
)

type contextKey string

const contextAuthKey contextKey = "auth"

// AuthResult is what Authenticate learned about the request. Err is nil
// exactly when Principal is set.
type AuthResult struct {
	Principal services.Principal
	Err       error
}

// TokenValidator resolves an access token to a principal.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (services.Principal, error)
}

// Guard holds the auth middleware.
type Guard struct {
	tokens TokenValidator
	logger *slog.Logger
}

// NewGuard constructs a Guard validating bearer tokens with tokens.
func NewGuard(tokens TokenValidator, logger *slog.Logger) *Guard {
	return &Guard{tokens: tokens, logger: logger}
}

// Authenticate validates the Authorization header, if any, and stores the
// outcome in the request context. It never rejects a request.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := AuthResult{Err: services.ErrMissingToken}
		if token := headerToken(r); token != "" {
			principal, err := g.tokens.Validate(r.Context(), token)
			result = AuthResult{Principal: principal, Err: err}
		}
		ctx := context.WithValue(r.Context(), contextAuthKey, result)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePrincipal rejects requests without a valid token.
func (g *Guard) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := authResultFromContext(r.Context())
		if result.Err != nil {
			message, ok := tokenErrorMessage(result.Err)
			if !ok {
				internalError(w, r, g.logger, "authenticate request", result.Err)
				return
			}
			writeError(w, http.StatusUnauthorized, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects principals without the admin role. It must run after
// RequirePrincipal.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFromContext(r.Context())
		if !ok || principal.Role != types.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrMissingToken):
		return "Please provide an access token!", true
	case errors.Is(err, services.ErrTokenExpired):
		return "Signature expired. Please log in again.", true
	case errors.Is(err, services.ErrTokenRevoked):
		return "Token blacklisted. Please log in again.", true
	case errors.Is(err, services.ErrInvalidToken):
		return "Invalid token. Please log in again.", true
	default:
		return "", false
	}
}

func authResultFromContext(ctx context.Context) AuthResult {
	result, ok := ctx.Value(contextAuthKey).(AuthResult)
	if !ok {
		return AuthResult{Err: services.ErrMissingToken}
	}
	return result
}

func principalFromContext(ctx context.Context) (services.Principal, bool) {
	result := authResultFromContext(ctx)
	if result.Err != nil {
		return services.Principal{}, false
	}
	return result.Principal, true
}

// headerToken accepts either a bare token or "Bearer <token>".
func headerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return auth
}
