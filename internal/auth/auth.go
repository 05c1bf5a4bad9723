// Package auth resolves the caller's identity. It never creates users: the
// identity provider is external and only yields a stable opaque user id.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"smartnotes/internal/errs"
)

// ErrNoIdentity means the request carries no usable credential.
var ErrNoIdentity = errors.New("no identity")

// Resolver maps a request to a user id.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (string, error)
}

// Chain tries each resolver in order and returns the first user id found.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, r *http.Request) (string, error) {
	var lastErr error = ErrNoIdentity
	for _, res := range c {
		userID, err := res.Resolve(ctx, r)
		if err == nil {
			return userID, nil
		}
		lastErr = err
	}
	return "", lastErr
}

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID stores the resolved user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the user id stored in ctx, or "" when there is none.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// RequireUser rejects requests without a resolvable identity with 401
// before the wrapped handler runs.
func RequireUser(res Resolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := res.Resolve(r.Context(), r)
			if err != nil || userID == "" {
				if err != nil && !errors.Is(err, ErrNoIdentity) {
					log.Debug("identity rejected", "path", r.URL.Path, "error", err)
				}
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errs.HTTPStatus(errs.Unauthenticated))
	json.NewEncoder(w).Encode(map[string]string{
		"error": "unauthorized",
		"code":  string(errs.Unauthenticated),
	})
}
