package http //nolint:revive // directory-based package name, imported with alias

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
)

const (
	requestTimeout = 30 * time.Second
	corsMaxAge     = 300
)

type RouterConfig struct {
	Verifier    *auth.Verifier
	CORSOrigins []string
	// WaitTimeout bounds POST /payouts?wait=true.
	WaitTimeout time.Duration
}

func NewRouter(h *Handler, cfg RouterConfig, log *zap.Logger) *chi.Mux {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = requestTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		MaxAge:         corsMaxAge,
	}))

	r.Get("/healthz", h.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Verifier))

		r.With(middleware.Timeout(cfg.WaitTimeout)).Post("/payouts", h.HandleCreatePayout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Get("/payouts/{id}", h.HandleGetPayout)
			r.Get("/payouts/{id}/receipt.png", h.HandleReceipt)
		})
	})

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
