package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/engine"
	"github.com/boddenberg/carcare-engine/internal/handler"
	"github.com/boddenberg/carcare-engine/internal/infra/memory"
	"github.com/boddenberg/carcare-engine/internal/infra/observability"
	"github.com/boddenberg/carcare-engine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type testServer struct {
	router http.Handler
	store  *memory.Store
	tokens *service.EntitlementTokens
}

func newTestServer(t *testing.T, cfg handler.RouterConfig) *testServer {
	t.Helper()
	store := memory.NewStore()
	store.PutVehicle(domain.Vehicle{ID: "v1", Year: 2019, Make: "Honda", Model: "Civic", Odometer: 84500})

	metrics := observability.NewMetrics()
	svc, err := service.NewMaintenance(service.Deps{
		Store:            store,
		Catalog:          engine.DefaultCatalog(),
		Policy:           engine.DefaultPolicy(),
		DefaultLaborRate: 100,
		Metrics:          metrics,
		Logger:           zap.NewNop(),
	})
	require.NoError(t, err)

	tokens := service.NewEntitlementTokens(testSecret, "")
	return &testServer{
		router: handler.NewRouter(svc, tokens, cfg, metrics, zap.NewNop()),
		store:  store,
		tokens: tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	rec := s.do(t, http.MethodGet, "/v1/engine/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.ListResponse[domain.ServiceTypeDefinition]](t, rec)
	assert.Equal(t, engine.DefaultCatalog().Len(), got.Total)
}

func TestComputeTaskEndpoint(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	body := `{
		"vehicle": {"id": "v9", "odometer": 84500},
		"serviceTypeId": "oil-change",
		"lastRecord": {"performedAt": "2025-05-01T00:00:00Z", "odometer": 80000},
		"now": "2025-06-01T12:00:00Z"
	}`
	rec := s.do(t, http.MethodPost, "/v1/engine/tasks/compute", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	task := decode[domain.MaintenanceTask](t, rec)
	assert.Equal(t, domain.StateDueSoon, task.State)
	assert.Equal(t, 90.0, task.Progress)
}

func TestComputeTaskEndpoint_Errors(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"vehicle":`, http.StatusBadRequest},
		{"unknown field", `{"serviceTypeId":"oil-change","bogus":1}`, http.StatusBadRequest},
		{"missing service type", `{"vehicle":{"odometer":1}}`, http.StatusBadRequest},
		{"unknown service type", `{"serviceTypeId":"warp-core"}`, http.StatusBadRequest},
		{"future record", `{"vehicle":{"odometer":10},"serviceTypeId":"oil-change","lastRecord":{"performedAt":"2030-01-01T00:00:00Z","odometer":1},"now":"2025-01-01T00:00:00Z"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/engine/tasks/compute", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAssessRiskEndpoint(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	rec := s.do(t, http.MethodPost, "/v1/engine/risk/assess",
		`{"profile":{"lastServiceBucket":"over-year"},"overdueTasks":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RiskHigh, decode[domain.RiskAssessment](t, rec).Level)

	rec = s.do(t, http.MethodPost, "/v1/engine/risk/assess", `{"profile":{"lastServiceBucket":"yesterday"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "lastServiceBucket", decode[map[string]string](t, rec)["field"])
}

func TestQuoteEndpoints(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	rec := s.do(t, http.MethodPost, "/v1/engine/quotes/evaluate",
		`{"lines":[{"description":"Front brake pads","quantity":1,"unitCost":80,"laborHours":1}],"laborRate":100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	eval := decode[domain.QuoteEvaluation](t, rec)
	assert.Equal(t, 180.0, eval.TotalCost)
	assert.Equal(t, domain.VerdictWithinRange, eval.Verdict)

	rec = s.do(t, http.MethodPost, "/v1/engine/quotes/batch",
		`{"quotes":[{"lines":[{"description":"oil change","quantity":1,"unitCost":500}]},{"lines":[]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[domain.QuoteBatchResponse](t, rec)
	require.Len(t, batch.Evaluations, 2)
	assert.Equal(t, domain.VerdictAboveRange, batch.Evaluations[0].Verdict)
	assert.Equal(t, domain.VerdictUnknown, batch.Evaluations[1].Verdict)

	rec = s.do(t, http.MethodPost, "/v1/engine/quotes/evaluate", `{"lines":[{"description":"x","quantity":-2}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisibilityEndpoint_Tiers(t *testing.T) {
	body := `{"tier":"pro","items":[{"id":"a","requiredTier":"pro"},{"id":"b","requiredTier":"pro"}]}`

	t.Run("declared tier honoured when not enforced", func(t *testing.T) {
		s := newTestServer(t, handler.RouterConfig{})
		rec := s.do(t, http.MethodPost, "/v1/engine/visibility/resolve", body)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[domain.VisibilityResponse](t, rec)
		assert.Equal(t, domain.Visible, got.Items[1].Visibility)
	})

	t.Run("declared tier ignored when enforced", func(t *testing.T) {
		s := newTestServer(t, handler.RouterConfig{RequireEntitlementToken: true})
		rec := s.do(t, http.MethodPost, "/v1/engine/visibility/resolve", body)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[domain.VisibilityResponse](t, rec)
		assert.Equal(t, domain.TierFree, got.Tier.Kind)
		assert.Equal(t, domain.Hidden, got.Items[1].Visibility)
	})

	t.Run("token tier wins", func(t *testing.T) {
		s := newTestServer(t, handler.RouterConfig{RequireEntitlementToken: true})
		token, err := s.tokens.Sign("user-1", domain.Tier{Kind: domain.TierPro}, time.Hour)
		require.NoError(t, err)
		rec := s.do(t, http.MethodPost, "/v1/engine/visibility/resolve", body, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[domain.VisibilityResponse](t, rec)
		assert.Equal(t, domain.Visible, got.Items[1].Visibility)
	})

	t.Run("bad token rejected", func(t *testing.T) {
		s := newTestServer(t, handler.RouterConfig{})
		rec := s.do(t, http.MethodPost, "/v1/engine/visibility/resolve", body, "Authorization", "Bearer garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = s.do(t, http.MethodPost, "/v1/engine/visibility/resolve", body, "Authorization", "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestVehicleFlow(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	rec := s.do(t, http.MethodPut, "/v1/vehicles/v1/onboarding",
		`{"biggestWorry":"ripped-off","lastServiceBucket":"6-12"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/vehicles/v1/service-records",
		`{"serviceTypeId":"oil-change","performedAt":"2020-01-01T00:00:00Z","odometer":80000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[domain.ServiceRecord](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/v1/vehicles/v1/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[domain.ListResponse[domain.MaintenanceTask]](t, rec)
	assert.Positive(t, tasks.Total)

	rec = s.do(t, http.MethodGet, "/v1/vehicles/v1/risk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RiskHigh, decode[domain.RiskAssessment](t, rec).Level)

	rec = s.do(t, http.MethodGet, "/v1/vehicles/v1/dashboard?tier=basic", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[domain.Dashboard](t, rec)
	assert.Equal(t, domain.TierBasic, dash.Tier.Kind)
	assert.Len(t, dash.Tasks, tasks.Total)

	rec = s.do(t, http.MethodPut, "/v1/vehicles/v1/odometer", `{"miles":90000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90000.0, decode[domain.Vehicle](t, rec).Odometer)

	rec = s.do(t, http.MethodPut, "/v1/vehicles/v1/odometer", `{"miles":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVehicleErrors(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{})

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/vehicles/ghost/tasks", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/v1/vehicles/v1/odometer/sync", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/vehicles/v1/service-records",
		`{"serviceTypeId":"oil-change","performedAt":"2999-01-01T00:00:00Z","odometer":1}`).Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, handler.RouterConfig{RateLimitRPS: 1, RateLimitBurst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, s.do(t, http.MethodGet, "/v1/engine/catalog", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Operational endpoints are not limited.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "").Code)
}
