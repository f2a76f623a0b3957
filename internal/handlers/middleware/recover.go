package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/nkiryanov/postboard/internal/handlers/render"
)

// Recover turns a panic in the next handler into a generic 500 response
// http.ErrAbortHandler is re-panicked so net/http can abort the response silently
func Recover(l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				l.Error("Panic while serving request",
					"panic", rec,
					"method", r.Method,
					"uri", r.RequestURI,
					"stack", string(debug.Stack()),
				)
				render.ServiceError(w, render.InternalErrorMessage, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
