package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mw "github.com/dropDatabas3/keyresolver/internal/http/middlewares"
	"github.com/dropDatabas3/keyresolver/internal/openid"
	"github.com/dropDatabas3/keyresolver/internal/rate"
)

// KeyResolver es lo que la API necesita del resolver.
type KeyResolver interface {
	ResolveKey(ctx context.Context, kid string) (*openid.ResolvedKey, bool)
	IssuerTemplate(tenantID string) (string, error)
	Refresh(ctx context.Context) error
	Stats() openid.Stats
}

// RouterDeps agrupa las dependencias del router.
type RouterDeps struct {
	Resolver KeyResolver
	Logger   *zap.Logger
	// Metrics expone /metrics con el gatherer default.
	Metrics bool
	// RefreshLimiter acota POST /v1/refresh por IP; nil = sin límite.
	RefreshLimiter rate.Limiter
	// TrustProxy toma la IP de X-Forwarded-For (solo detrás de un proxy propio).
	TrustProxy bool
}

// NewRouter arma el router chi con el chain base de middlewares.
func NewRouter(deps RouterDeps) http.Handler {
	h := &keysHandler{resolver: deps.Resolver}

	r := chi.NewRouter()

	// health sin logging (muy frecuente)
	r.Method(http.MethodGet, "/readyz", mw.Chain(http.HandlerFunc(h.readyz), mw.WithRequestID()))
	if deps.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		// WithRecover va primero para cubrir también panics de logging.
		r.Use(
			mw.WithRecover(),
			mw.WithRequestID(),
			mw.WithLogging(deps.Logger),
			mw.WithCacheControl("no-store"),
		)
		r.Get("/v1/keys/{kid}", h.getKey)
		r.Get("/v1/issuer/{tenant}", h.getIssuer)
		r.Method(http.MethodPost, "/v1/refresh", mw.Chain(http.HandlerFunc(h.refresh),
			mw.WithRateLimit(mw.RateLimitConfig{Limiter: deps.RefreshLimiter, TrustProxy: deps.TrustProxy}),
		))
		r.Get("/v1/stats", h.stats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "ruta inexistente")
	})
	return r
}
