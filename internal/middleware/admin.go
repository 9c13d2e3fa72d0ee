package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	apierrors "themekeys/internal/errors"
	"themekeys/internal/infrastructure"
)

// AdminAuth gates the license administration surface behind a bearer token.
// The check lives here, at the service's own trust boundary, rather than
// being delegated to an ambient upstream gate. Comparison is constant time.
//
// An empty configured token disables the surface entirely: every request is
// rejected until an operator sets one.
func AdminAuth(token string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			traceID := infrastructure.GetTraceID(ctx)

			if token == "" {
				logger.ErrorContext(ctx, "admin endpoint hit with no admin token configured",
					"path", r.URL.Path,
				)
				problem := apierrors.NewProblemDetails(
					http.StatusServiceUnavailable,
					"/errors/admin-disabled",
					"Admin Surface Disabled",
					"No admin token is configured; the administration endpoints are disabled.",
					r.URL.Path,
				).WithExtension("trace_id", traceID)
				render.Render(w, r, problem)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				logger.WarnContext(ctx, "admin request without bearer token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				problem := apierrors.NewProblemDetails(
					http.StatusUnauthorized,
					"/errors/unauthorized",
					"Authentication Required",
					"Admin endpoints require a bearer token.",
					r.URL.Path,
				).WithExtension("trace_id", traceID)
				render.Render(w, r, problem)
				return
			}

			presented := strings.TrimPrefix(header, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				logger.WarnContext(ctx, "admin request with invalid token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				problem := apierrors.NewProblemDetails(
					http.StatusForbidden,
					"/errors/forbidden",
					"Access Denied",
					"The presented admin token is not valid.",
					r.URL.Path,
				).WithExtension("trace_id", traceID)
				render.Render(w, r, problem)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
