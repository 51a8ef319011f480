package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Service log (implements port.ServiceRecordStore)
// ============================================================

type serviceRecordRow struct {
	ID            string  `json:"id,omitempty"`
	VehicleID     string  `json:"vehicle_id"`
	ServiceTypeID string  `json:"service_type_id"`
	PerformedAt   string  `json:"performed_at"`
	Odometer      float64 `json:"odometer_miles"`
}

func (r serviceRecordRow) toDomain() domain.ServiceRecord {
	t, _ := time.Parse(time.RFC3339, r.PerformedAt)
	if t.IsZero() {
		t, _ = time.Parse("2006-01-02", r.PerformedAt)
	}
	return domain.ServiceRecord{
		ID:            r.ID,
		VehicleID:     r.VehicleID,
		ServiceTypeID: r.ServiceTypeID,
		PerformedAt:   t.UTC(),
		Odometer:      r.Odometer,
	}
}

// ListServiceRecords returns the vehicle's log, oldest first.
func (c *Client) ListServiceRecords(ctx context.Context, vehicleID string) ([]domain.ServiceRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListServiceRecords")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	var records []domain.ServiceRecord
	err := c.call(ctx, "service_records", func() error {
		var rows []serviceRecordRow
		path := "service_records?" + eq("vehicle_id", vehicleID) + "&order=performed_at.asc"
		if _, err := c.doGet(ctx, path, &rows); err != nil {
			return err
		}
		records = make([]domain.ServiceRecord, 0, len(rows))
		for _, r := range rows {
			records = append(records, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("records.count", len(records)))
	return records, nil
}

// AppendServiceRecord inserts one record. The log is never updated in place.
func (c *Client) AppendServiceRecord(ctx context.Context, rec *domain.ServiceRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.AppendServiceRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("vehicle.id", rec.VehicleID),
		attribute.String("service_type.id", rec.ServiceTypeID),
	)

	row := serviceRecordRow{
		ID:            rec.ID,
		VehicleID:     rec.VehicleID,
		ServiceTypeID: rec.ServiceTypeID,
		PerformedAt:   rec.PerformedAt.UTC().Format(time.RFC3339),
		Odometer:      rec.Odometer,
	}
	return c.call(ctx, "service_records", func() error {
		body, err := c.doPost(ctx, "service_records", row)
		if err != nil {
			return err
		}
		var created []serviceRecordRow
		if len(body) > 0 {
			if err := json.Unmarshal(body, &created); err != nil {
				return fmt.Errorf("decode created service record: %w", err)
			}
		}
		if len(created) > 0 && rec.ID == "" {
			rec.ID = created[0].ID
		}
		return nil
	})
}
