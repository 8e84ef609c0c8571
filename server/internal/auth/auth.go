// Package auth implements password hashing, JWT issuance, and the HTTP
// middleware that resolves the requesting user.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/transformerzoo/zoo-server/server/internal/store"
)

type contextKey struct{}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(s *store.S, secret string, tokenDuration time.Duration, logger logr.Logger) *Authenticator {
	return &Authenticator{
		store:         s,
		secret:        secret,
		tokenDuration: tokenDuration,
		logger:        logger.WithName("auth"),
	}
}

// Authenticator validates bearer tokens and resolves users.
type Authenticator struct {
	store         *store.S
	secret        string
	tokenDuration time.Duration

	logger logr.Logger
}

// IssueToken creates an access token for the user.
func (a *Authenticator) IssueToken(userID uint) (string, error) {
	return CreateAccessToken(a.secret, userID, a.tokenDuration)
}

// Middleware requires a valid bearer token and injects the user into
// the request context. Requests without one get a 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.userFromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Could not validate credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// OptionalMiddleware injects the user when a valid bearer token is
// present and passes the request through untouched otherwise.
func (a *Authenticator) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := a.userFromRequest(r); err == nil {
			r = r.WithContext(ContextWithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) userFromRequest(r *http.Request) (*store.User, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errMissingToken
	}
	userID, err := ParseAccessToken(a.secret, token)
	if err != nil {
		a.logger.V(2).Info("Token validation failed", "error", err)
		return nil, err
	}
	user, err := a.store.GetUserByID(userID)
	if err != nil {
		a.logger.V(2).Info("Token user not found", "userID", userID)
		return nil, err
	}
	return user, nil
}

var errMissingToken = &missingTokenError{}

type missingTokenError struct{}

func (e *missingTokenError) Error() string { return "missing authentication token" }

// ContextWithUser returns a context carrying the user.
func ContextWithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext extracts the authenticated user, if any.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*store.User)
	return u, ok
}
