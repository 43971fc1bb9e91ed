package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/velocity-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/velocity-backend/api/controllers/cart"
	"github.com/angelmondragon/velocity-backend/api/middleware"
	"github.com/angelmondragon/velocity-backend/internal/cart"
	"github.com/angelmondragon/velocity-backend/pkg/config"
	"github.com/angelmondragon/velocity-backend/pkg/logger"
	"github.com/angelmondragon/velocity-backend/pkg/metrics"
	"github.com/angelmondragon/velocity-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Redis and Gatherer are
// optional.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	CartService cart.Service
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	cartService := deps.CartService

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	checks := map[string]controllers.Pinger{"cart_store": pingFunc(cartService.Ping)}
	var idempotencyStore redis.IdempotencyStore
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
		idempotencyStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, cfg.Cart.SessionCookie, logg))

		r.Get("/", cartcontrollers.CartSummary(cartService, logg))
		r.Delete("/", cartcontrollers.CartClear(cartService, logg))
		r.Get("/count", cartcontrollers.CartCount(cartService, logg))
		r.Get("/validate", cartcontrollers.CartValidate(cartService, logg))

		r.Route("/items", func(r chi.Router) {
			r.With(
				middleware.EnsureSession(cfg.Cart.SessionCookie, cfg.App.IsProd(), logg),
				middleware.Idempotency(idempotencyStore, cfg.Cart.IdempotencyTTL, logg),
			).Post("/", cartcontrollers.CartAddItem(cartService, logg))
			r.Put("/{productId}", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/{productId}", cartcontrollers.CartRemoveItem(cartService, logg))
		})

		r.With(middleware.Idempotency(idempotencyStore, cfg.Cart.IdempotencyTTL, logg)).
			Post("/merge", cartcontrollers.CartMerge(cartService, logg))
	})

	return r
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
