package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/adapter/http/handlers"
	"invoicing/internal/adapter/http/middleware"
	"invoicing/internal/adapter/images"
	"invoicing/internal/apperr"
	"invoicing/internal/catalog"
	"invoicing/internal/envelope"
	"invoicing/internal/invoicing"
	"invoicing/internal/platform/sqlite"
	"invoicing/internal/platform/telemetry"
	"invoicing/internal/store"
	"invoicing/internal/store/sqlitestore"
	"invoicing/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type routerFixture struct {
	router *gin.Engine
	logs   *testutil.LogRecorder
	tel    *telemetry.Provider
}

func newRouterFixture(t *testing.T, health pingFunc, opts ...func(*RouterConfig)) *routerFixture {
	t.Helper()
	tdb := sqlite.NewTestDBInMemory(t, store.Migrations, store.SQLiteMigrations)
	st := sqlitestore.New(tdb.DB)
	if health == nil {
		health = st.Ping
	}

	tel, err := telemetry.Setup(context.Background(), "invoicing-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	metrics, err := telemetry.NewMetrics(tel.Meter())
	require.NoError(t, err)

	log, rec := testutil.NewLogger()
	cfg := RouterConfig{
		Logger:         log,
		Metrics:        metrics,
		MetricsHandler: tel.Handler(),
		Health:         health,
		Handlers: handlers.New(
			catalog.New(st, images.New(t.TempDir(), 0)),
			invoicing.New(st, invoicing.Config{}),
			images.DefaultMaxBytes,
		),
		Builder: envelope.NewBuilder(""),
		Auth:    middleware.AuthConfig{Secret: []byte(testutil.TestSecret)},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := NewRouter(cfg)
	return &routerFixture{router: r, logs: rec, tel: tel}
}

func (f *routerFixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestHealthzDatabaseDown(t *testing.T) {
	f := newRouterFixture(t, func(context.Context) error {
		return store.Translate("ping", errors.New("database is locked"))
	})

	rec := f.do(http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, apperr.CodeDatabase, env.ErrorCode)

	failed, ok := f.logs.Find("request failed")
	require.True(t, ok)
	assert.Contains(t, failed.Attrs["internal_error"], "database is locked")

	_, ok = f.logs.Find("request")
	assert.True(t, ok, "access log written after the boundary")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodDelete, "/healthz")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, apperr.CodeInvalidOperation, env.ErrorCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.do(http.MethodGet, "/api/products/9")

	rec := f.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "invoicing_http_requests_total")
	assert.Contains(t, string(body), `route="/api/products/:id"`)
	assert.Contains(t, string(body), `code="RESOURCE_NOT_FOUND"`)
}

func TestPoolStatsJobWithoutPool(t *testing.T) {
	log, rec := testutil.NewLogger()

	require.NoError(t, poolStatsJob(nil, log)(context.Background()))

	r, ok := rec.Find("postgres pool")
	require.True(t, ok)
	assert.Equal(t, int64(0), r.Attrs["max"])
}

func TestBodyLimitAndRateLimit(t *testing.T) {
	f := newRouterFixture(t, nil, func(c *RouterConfig) {
		c.MaxBodyBytes = 64
		c.RateLimit = time.Hour
	})
	token := testutil.IssueTestToken(t, testutil.TestSecret, "admin", []string{handlers.PermCatalogWrite}, time.Hour)
	post := func(body string) (*httptest.ResponseRecorder, envelope.Envelope) {
		req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		var env envelope.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
		return rec, env
	}

	rec, env := post(`{"name":"` + strings.Repeat("x", 100) + `","price":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, env.Details, 1)
	require.NotNil(t, env.Details[0].Code)
	assert.Equal(t, "BODY_TOO_LARGE", *env.Details[0].Code)

	rec, env = post(`{"name":"Pad","price":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperr.CodeBusinessRule, env.ErrorCode)
}
