package inventory

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StockRoom/internal/auth"
	"StockRoom/pkg/kit"
)

const writeLimitWindow = 60 * time.Second

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// AdminTokens, when set, makes every mutating route require an admin JWT.
	AdminTokens *auth.TokenMaker
	// WriteLimitPerMin caps mutating requests per client IP; 0 disables it.
	WriteLimitPerMin int
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, s, deps)

	r.Mount("/", s.Routes(writeMiddleware(deps)...))
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, s *Server, deps HTTPDeps) {
	if deps.Registry == nil {
		if deps.MetricsEnabled {
			deps.Log.Warn("metrics enabled but Registry is nil")
		}
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service))

	if s.Gauges == nil {
		s.Gauges = NewReportGauges(deps.Registry)
	}

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func writeMiddleware(deps HTTPDeps) []func(http.Handler) http.Handler {
	var mw []func(http.Handler) http.Handler

	if deps.WriteLimitPerMin > 0 {
		mw = append(mw, kit.NewIPRateLimiter(deps.WriteLimitPerMin, writeLimitWindow).Middleware)
	}
	if deps.AdminTokens != nil {
		mw = append(mw, auth.RequireRole(deps.AdminTokens, auth.RoleAdmin))
	}
	return mw
}
