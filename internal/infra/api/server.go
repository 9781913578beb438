package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain/model"
)

// NewRouter wires the HTTP surface. Public routes are the catalog, auth and
// the health/metrics endpoints; everything else requires a session.
func NewRouter(h *Handler, base *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(RequestLog(base))
	r.Use(Recover(base))
	r.Use(Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Get("/packages", h.listPackages)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.issuer))

			r.Post("/packages/purchase", h.purchaseDirect)
			r.Post("/paytr/checkout", h.paytrCheckout)
			r.Post("/paytr/complete", h.paytrComplete)
			r.Get("/user/subscription", h.userSubscription)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleTrainer, model.RoleAdmin))
				r.Get("/trainer/clients", h.trainerClients)
				r.Post("/trainer/clients/{id}/package", h.trainerAssign)
				r.Delete("/purchases/{id}", h.cancelPurchase)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(model.RoleAdmin))
				r.Get("/stats", h.adminStats)
				r.Post("/paytr/test", h.adminPayTRTest)
				r.Post("/links", h.adminLinkClient)
				r.Get("/packages", h.adminListPackages)
				r.Post("/packages", h.adminCreatePackage)
				r.Put("/packages/{id}", h.adminUpdatePackage)
				r.Delete("/packages/{id}", h.adminDeactivatePackage)
			})
		})
	})
	return r
}

// Server wraps the stdlib server with sane timeouts and graceful shutdown.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(port int, handler http.Handler, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      35 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: &l,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.srv.Shutdown(ctx)
}
