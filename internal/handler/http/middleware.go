package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/karciss/red-social-backend/internal/domain"
	"github.com/karciss/red-social-backend/internal/service"
	apperrors "github.com/karciss/red-social-backend/pkg/errors"
	"github.com/karciss/red-social-backend/pkg/httputil"
	"github.com/karciss/red-social-backend/pkg/logger"
)

type contextKey string

const userContextKey contextKey = "current_user"

// UserFromContext returns the authenticated user stored by the Authenticate
// middleware, or nil when the request is unauthenticated.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userContextKey).(*domain.User); ok {
		return u
	}
	return nil
}

// Authenticate resolves the Authorization header into a live user record on
// every request. A deactivated account or a stale token subject is rejected
// here, before any handler runs.
func Authenticate(svc *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := svc.ResolveUser(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = logger.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the authenticated user
// holds one of the listed roles. Must be composed after Authenticate; a
// missing user is a 401, a present user with the wrong role a 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient role"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
