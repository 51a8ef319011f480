package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/client"
	"github.com/boddenberg/carcare-engine/internal/infra/resilience"
	"github.com/boddenberg/carcare-engine/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ port.OdometerSource = (*client.OdometerClient)(nil)

func newOdometerClient(t *testing.T, h http.HandlerFunc) *client.OdometerClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2}
	return client.NewOdometerClient(srv.Client(), srv.URL+"/", "secret", resilience.NewCircuitBreaker("telematics-test"), cfg)
}

func TestReadOdometer_Miles(t *testing.T) {
	c := newOdometerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/vehicles/v-1/odometer", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"vehicleId":"v-1","value":84500,"unit":"mi","readAt":"2025-06-01T12:00:00Z"}`)
	})

	got, err := c.ReadOdometer(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, 84500.0, got.Miles)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), got.ReadAt)
}

func TestReadOdometer_ConvertsKilometers(t *testing.T) {
	c := newOdometerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"value":16093.44,"unit":"km"}`)
	})

	got, err := c.ReadOdometer(context.Background(), "v-1")
	require.NoError(t, err)
	assert.InDelta(t, 10000.0, got.Miles, 1e-9)
}

func TestReadOdometer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newOdometerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"value":120}`)
	})

	got, err := c.ReadOdometer(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, got.Miles)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReadOdometer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found is not retried",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var nf *domain.ErrNotFound
				assert.True(t, errors.As(err, &nf))
			},
		},
		{
			name:   "negative value",
			status: http.StatusOK,
			body:   `{"value":-5}`,
			check: func(t *testing.T, err error) {
				var inv *domain.ErrInvalidInput
				assert.True(t, errors.As(err, &inv))
			},
		},
		{
			name:   "unknown unit",
			status: http.StatusOK,
			body:   `{"value":5,"unit":"furlongs"}`,
			check: func(t *testing.T, err error) {
				var inv *domain.ErrInvalidInput
				require.True(t, errors.As(err, &inv))
				assert.Equal(t, "unit", inv.Field)
			},
		},
		{
			name:   "persistent failure",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var ext *domain.ErrExternalService
				require.True(t, errors.As(err, &ext))
				assert.Equal(t, "telematics", ext.Service)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newOdometerClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.ReadOdometer(context.Background(), "v-1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
