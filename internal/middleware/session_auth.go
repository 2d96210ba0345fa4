package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/paytask/backend/internal/models"
)

type contextKey string

const ctxActorKey contextKey = "actor"

// TokenValidator checks a session token and returns the user it was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (userID, role string, err error)
}

// UserLookup resolves users from the ledger.
type UserLookup interface {
	GetUser(id string) (*models.User, error)
	CurrentUser() (*models.User, error)
}

// SessionAuth resolves the acting user from the Bearer session token and sets
// it into request context. When fallback is true a request without a token
// acts as the ledger's current user, the way the demo user switcher works.
func SessionAuth(tokens TokenValidator, users UserLookup, fallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				if !fallback {
					http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
					return
				}
				actor, err := users.CurrentUser()
				if err != nil {
					http.Error(w, `{"error":"no current user"}`, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}

			userID, _, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid session token"}`, http.StatusUnauthorized)
				return
			}
			actor, err := users.GetUser(userID)
			if err != nil {
				http.Error(w, `{"error":"unknown session user"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// ActorFromCtx returns the authenticated user or nil.
func ActorFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxActorKey).(*models.User)
	return u
}

// WithActor returns a context carrying the given user.
func WithActor(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxActorKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
