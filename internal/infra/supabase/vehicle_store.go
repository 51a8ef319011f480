package supabase

import (
	"context"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Vehicles (implements port.VehicleStore)
// ============================================================

type vehicleRow struct {
	ID       string  `json:"id"`
	Year     int     `json:"year"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Trim     string  `json:"trim_level"`
	Odometer float64 `json:"odometer_miles"`
	OwnerID  string  `json:"owner_id"`
}

func (r vehicleRow) toDomain() *domain.Vehicle {
	return &domain.Vehicle{
		ID:       r.ID,
		Year:     r.Year,
		Make:     r.Make,
		Model:    r.Model,
		Trim:     r.Trim,
		Odometer: r.Odometer,
		OwnerID:  r.OwnerID,
	}
}

// GetVehicle fetches a vehicle by id.
func (c *Client) GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	var vehicle *domain.Vehicle
	err := c.call(ctx, "vehicles", func() error {
		var rows []vehicleRow
		found, err := c.doGet(ctx, "vehicles?"+eq("id", vehicleID)+"&limit=1", &rows)
		if err != nil {
			return err
		}
		if !found || len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
		}
		vehicle = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

// UpdateOdometer stores a new odometer reading. Monotonicity is enforced by
// the caller.
func (c *Client) UpdateOdometer(ctx context.Context, vehicleID string, miles float64) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateOdometer")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	return c.call(ctx, "vehicles", func() error {
		return c.doPatch(ctx, "vehicles?"+eq("id", vehicleID), map[string]any{
			"odometer_miles": miles,
		})
	})
}
