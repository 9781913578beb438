package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/infra/logging"
	"fitness-coaching-platform/internal/infra/metrics"
)

type ctxKey string

const ctxActor ctxKey = "actor"

// actorFrom returns the authenticated caller, or nil on public routes.
func actorFrom(ctx context.Context) *model.User {
	if v := ctx.Value(ctxActor); v != nil {
		return v.(*model.User)
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// TraceID tags every request with a trace id, honoring X-Request-ID when the
// caller supplies one.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), id)))
	})
}

// RequestLog emits one structured line per request and records the latency
// histogram under the chi route pattern.
func RequestLog(base *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			metrics.ObserveHTTP(r.Method, route, sw.status, elapsed.Seconds())
			logging.With(r.Context(), base).Info().
				Str("method", r.Method).
				Str("route", route).
				Int("status", sw.status).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}

// Recover converts panics into 500s instead of killing the connection.
func Recover(base *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.With(r.Context(), base).Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("panic recovered in handler")
					writeError(w, http.StatusInternalServerError, "Beklenmeyen bir hata oluştu")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds handler execution through the request context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate requires a valid bearer token and places the actor on the
// context. The actor carries only what the token proves: id, role, email.
func Authenticate(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Oturum açmanız gerekiyor")
				return
			}
			claims, err := issuer.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Oturumunuz geçersiz veya süresi dolmuş")
				return
			}
			actor := &model.User{ID: claims.Subject, Role: model.Role(claims.Role), Email: claims.Email}
			ctx := context.WithValue(r.Context(), ctxActor, actor)
			ctx = logging.WithUserID(ctx, actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to the given roles. Must run after Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFrom(r.Context())
			if actor == nil || !allowed[actor.Role] {
				writeError(w, http.StatusForbidden, "Bu işlem için yetkiniz yok")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
