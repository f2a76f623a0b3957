package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/postboard/internal/handlers/render"
	"github.com/nkiryanov/postboard/internal/handlers/userctx"
	"github.com/nkiryanov/postboard/internal/models"
)

type authenticator interface {
	// Nil user and nil error means anonymous request
	Authenticate(ctx context.Context, r *http.Request) (*models.User, error)
}

type errorLogger interface {
	Error(msg string, args ...any)
}

// Auth resolves the user from request token and puts it to the request context
// Anonymous requests pass through, routes decide if they need a user
func Auth(as authenticator, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			if err != nil {
				code, message := render.ErrorStatus(err)
				if code == http.StatusInternalServerError {
					l.Error("Failed to authenticate request", "error", err)
				} else {
					code = http.StatusUnauthorized
				}
				render.ServiceError(w, message, code)
				return
			}

			if user != nil {
				r = r.WithContext(userctx.WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
