package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/velocity-backend/api/middleware"
	"github.com/angelmondragon/velocity-backend/internal/cart"
	"github.com/angelmondragon/velocity-backend/internal/catalog"
	"github.com/angelmondragon/velocity-backend/internal/pricing"
	pkgAuth "github.com/angelmondragon/velocity-backend/pkg/auth"
	"github.com/angelmondragon/velocity-backend/pkg/config"
	"github.com/angelmondragon/velocity-backend/pkg/logger"
	"github.com/angelmondragon/velocity-backend/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "velocity"},
		Cart: config.CartConfig{
			SessionCookie:   "velocity_session",
			MaxLineQuantity: 99,
			IdempotencyTTL:  time.Hour,
		},
	}
}

func newTestRouter(t *testing.T, products ...catalog.Product) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	calc, err := pricing.NewCalculator(pricing.DefaultConfig())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	svc, err := cart.NewService(cart.Deps{
		Store:      cart.NewMemoryStore(),
		Catalog:    catalog.NewMemoryReader(products...),
		Calculator: calc,
		Metrics:    metrics.NewCartMetrics(reg),
	})
	require.NoError(t, err)

	return NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.Nop(),
		CartService: svc,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	claims := pkgAuth.AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
	}
}

func TestCartRequiresIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGuestCheckoutFlowAndMerge(t *testing.T) {
	p := catalog.Product{
		ID:            uuid.New(),
		Name:          "Mug",
		Slug:          "mug",
		Price:         decimal.RequireFromString("12.00"),
		StockQuantity: 20,
		IsActive:      true,
	}
	router, cfg := newTestRouter(t, p)

	// first add with no identity issues a session cookie and creates the cart
	add := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"`+p.ID.String()+`","quantity":2}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, add)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	sessionID := resp.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, sessionID)

	count := httptest.NewRequest(http.MethodGet, "/api/v1/cart/count", nil)
	count.AddCookie(&http.Cookie{Name: cfg.Cart.SessionCookie, Value: sessionID})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, count)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"count":2}}`, resp.Body.String())

	userID := uuid.New()
	merge := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", nil)
	merge.Header.Set("Authorization", bearer(t, cfg, userID))
	merge.Header.Set(middleware.SessionHeader, sessionID)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, merge)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	summary := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	summary.Header.Set("Authorization", bearer(t, cfg, userID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, summary)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			OwnerType string `json:"owner_type"`
			ItemCount int    `json:"item_count"`
			Total     string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "user", body.Data.OwnerType)
	assert.Equal(t, 2, body.Data.ItemCount)
	assert.Equal(t, "32.03", body.Data.Total)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}
