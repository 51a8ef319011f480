// Package client holds HTTP clients for external vehicle data providers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/engine"
	"github.com/boddenberg/carcare-engine/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

// odometerPayload is the telematics provider's answer. Unit is "mi" or "km".
type odometerPayload struct {
	VehicleID string  `json:"vehicleId"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	ReadAt    string  `json:"readAt"`
}

// OdometerClient reads odometer values from a telematics API.
type OdometerClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewOdometerClient creates a new OdometerClient.
func NewOdometerClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *OdometerClient {
	return &OdometerClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

// ReadOdometer fetches the latest reading in miles with retry, circuit
// breaker, bulkhead and tracing.
func (c *OdometerClient) ReadOdometer(ctx context.Context, vehicleID string) (*domain.OdometerReading, error) {
	ctx, span := tracer.Start(ctx, "OdometerClient.ReadOdometer")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	var reading *domain.OdometerReading
	err := c.bulkhead.Do(ctx, func() error {
		var err error
		reading, err = resilience.Execute(c.cb, func() (*domain.OdometerReading, error) {
			var out *domain.OdometerReading
			retryErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				r, err := c.fetch(ctx, vehicleID)
				if err != nil {
					return err
				}
				out = r
				return nil
			})
			return out, retryErr
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !resilience.Retryable(err) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: "telematics", Err: err}
	}
	span.SetAttributes(attribute.Float64("odometer.miles", reading.Miles))
	return reading, nil
}

func (c *OdometerClient) fetch(ctx context.Context, vehicleID string) (*domain.OdometerReading, error) {
	endpoint := fmt.Sprintf("%s/v1/vehicles/%s/odometer", c.baseURL, url.PathEscape(vehicleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.ErrNotFound{Resource: "odometer", ID: vehicleID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telematics API returned status %d", resp.StatusCode)
	}

	var payload odometerPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding odometer response: %w", err)
	}
	return toReading(vehicleID, payload)
}

func toReading(vehicleID string, p odometerPayload) (*domain.OdometerReading, error) {
	if p.Value < 0 {
		return nil, &domain.ErrInvalidInput{Field: "odometer", Message: "provider reported a negative value"}
	}

	miles := p.Value
	switch strings.ToLower(p.Unit) {
	case "", "mi", "miles":
	case "km", "kilometers":
		miles = engine.KilometersToMiles(p.Value)
	default:
		return nil, &domain.ErrInvalidInput{Field: "unit", Message: "unknown odometer unit " + p.Unit}
	}

	readAt := time.Time{}
	if p.ReadAt != "" {
		t, err := time.Parse(time.RFC3339, p.ReadAt)
		if err != nil {
			return nil, &domain.ErrInvalidInput{Field: "readAt", Message: err.Error()}
		}
		readAt = t.UTC()
	}

	return &domain.OdometerReading{VehicleID: vehicleID, Miles: miles, ReadAt: readAt}, nil
}
