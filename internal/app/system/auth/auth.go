// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/tokens"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated caller injected into r.Context().
type SessionUser struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	authErrKey     ctxKey = "authError"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithUser returns ctx carrying u. Handlers under test use it to skip the
// bearer round trip.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authenticator                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// UserFetcher loads the live user record named by a token. Implementations
// return apperr.ErrDeletedOrBanned for missing or soft-deleted users.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*tokens.Claims, error)
}

// Authenticator resolves bearer tokens into SessionUsers. Role and deletion
// state always come from the store, never from the token.
type Authenticator struct {
	verifier AccessVerifier
	fetcher  UserFetcher
	log      *zap.Logger
}

// New creates an Authenticator.
func New(verifier AccessVerifier, fetcher UserFetcher, log *zap.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, fetcher: fetcher, log: log}
}

// LoadUser injects the user into context when a valid bearer token is
// present. Failures are remembered for RequireSignedIn; anonymous requests
// continue untouched so public routes can share the middleware.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.verifier.VerifyAccess(raw)
		if err != nil {
			next.ServeHTTP(w, withAuthErr(r, apperr.ErrUnauthorized))
			return
		}

		u, err := a.fetcher.FetchUser(r.Context(), claims.UserID)
		if err != nil {
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				a.log.Error("load user for bearer token",
					zap.String("user_id", claims.UserID), zap.Error(err))
				err = apperr.Wrap(apperr.KindInternal, err)
			}
			next.ServeHTTP(w, withAuthErr(r, err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadUser).
// It reports the reason LoadUser rejected the token when there is one, so a
// soft-deleted account sees DeletedOrBanned rather than a generic 401.
func (a *Authenticator) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		respond.Error(w, a.log, authErr(r))
	})
}

// RequireRole ensures there is a user with one of the allowed roles.
// Signed-out callers get the RequireSignedIn answer; wrong roles get 403.
func (a *Authenticator) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Error(w, a.log, authErr(r))
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				respond.Error(w, a.log, apperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func withAuthErr(r *http.Request, err error) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authErrKey, err))
}

func authErr(r *http.Request) error {
	if err, ok := r.Context().Value(authErrKey).(error); ok {
		return err
	}
	return apperr.ErrUnauthorized
}
