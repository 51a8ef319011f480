package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/resilience"
	"github.com/boddenberg/carcare-engine/internal/infra/supabase"
	"github.com/boddenberg/carcare-engine/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ port.Store = (*supabase.Client)(nil)

func newClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
	return supabase.NewClient(srv.Client(), srv.URL, "anon", "service-role",
		resilience.NewCircuitBreaker("supabase-test"), cfg, zap.NewNop())
}

func TestGetVehicle(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/vehicles", r.URL.Path)
		assert.Equal(t, "eq.v-1", r.URL.Query().Get("id"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-role", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"v-1","year":2019,"make":"Honda","model":"Civic","odometer_miles":84500,"owner_id":"u1"}]`)
	})

	v, err := c.GetVehicle(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, "Civic", v.Model)
	assert.Equal(t, 84500.0, v.Odometer)
}

func TestGetVehicle_NotFound(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.GetVehicle(context.Background(), "missing")
	var notFound *domain.ErrNotFound
	require.True(t, errors.As(err, &notFound), "got %v", err)
	assert.Equal(t, int32(1), calls.Load(), "not-found must not be retried")
}

func TestGetVehicle_ServerErrorIsExternal(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetVehicle(context.Background(), "v-1")
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext), "got %v", err)
	assert.Equal(t, "supabase/vehicles", ext.Service)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListServiceRecords(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.v-1", r.URL.Query().Get("vehicle_id"))
		assert.Equal(t, "performed_at.asc", r.URL.Query().Get("order"))
		_, _ = io.WriteString(w, `[
			{"id":"r1","vehicle_id":"v-1","service_type_id":"oil-change","performed_at":"2025-01-15T10:00:00Z","odometer_miles":80000},
			{"id":"r2","vehicle_id":"v-1","service_type_id":"tire-rotation","performed_at":"2025-02-01","odometer_miles":81000}
		]`)
	})

	records, err := c.ListServiceRecords(context.Background(), "v-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), records[0].PerformedAt)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), records[1].PerformedAt)
}

func TestAppendServiceRecord_TakesGeneratedID(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var row map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "oil-change", row["service_type_id"])
		assert.Equal(t, "2025-03-01T00:00:00Z", row["performed_at"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"generated","vehicle_id":"v-1","service_type_id":"oil-change"}]`)
	})

	rec := &domain.ServiceRecord{
		VehicleID:     "v-1",
		ServiceTypeID: "oil-change",
		PerformedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Odometer:      85000,
	}
	require.NoError(t, c.AppendServiceRecord(context.Background(), rec))
	assert.Equal(t, "generated", rec.ID)
}

func TestSaveProfile_Upserts(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vehicle_id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		w.WriteHeader(http.StatusCreated)
	})

	err := c.SaveProfile(context.Background(), &domain.OnboardingProfile{
		VehicleID:         "v-1",
		LastServiceBucket: domain.LastServiceOverYear,
		UpdatedAt:         time.Now(),
	})
	require.NoError(t, err)
}

func TestGetProfile_Missing(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	p, err := c.GetProfile(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestUpdateOdometer(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]float64
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 90000.0, body["odometer_miles"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.UpdateOdometer(context.Background(), "v-1", 90000))
}
