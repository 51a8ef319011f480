// Package postgres is the self-hosted persistence backend: pgx pool, squirrel
// query building and goose migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("postgres")

type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		sb:   builder(),
	}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ============================================================
// Vehicles
// ============================================================

func selectVehicle(sb sq.StatementBuilderType, vehicleID string) sq.SelectBuilder {
	return sb.
		Select("id", "year", "make", "model", "trim_level", "odometer_miles", "owner_id").
		From("vehicles").
		Where(sq.Eq{"id": vehicleID})
}

func (s *Store) GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	sqlStr, args, err := selectVehicle(s.sb, vehicleID).ToSql()
	if err != nil {
		return nil, err
	}

	var v domain.Vehicle
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&v.ID,
		&v.Year,
		&v.Make,
		&v.Model,
		&v.Trim,
		&v.Odometer,
		&v.OwnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
		}
		return nil, &domain.ErrExternalService{Service: "postgres/vehicles", Err: err}
	}
	return &v, nil
}

func updateOdometer(sb sq.StatementBuilderType, vehicleID string, miles float64) sq.UpdateBuilder {
	return sb.
		Update("vehicles").
		Set("odometer_miles", miles).
		Where(sq.Eq{"id": vehicleID})
}

func (s *Store) UpdateOdometer(ctx context.Context, vehicleID string, miles float64) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateOdometer")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	sqlStr, args, err := updateOdometer(s.sb, vehicleID, miles).ToSql()
	if err != nil {
		return err
	}

	ct, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return &domain.ErrExternalService{Service: "postgres/vehicles", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
	}
	return nil
}

// ============================================================
// Service log
// ============================================================

func selectServiceRecords(sb sq.StatementBuilderType, vehicleID string) sq.SelectBuilder {
	return sb.
		Select("id", "vehicle_id", "service_type_id", "performed_at", "odometer_miles").
		From("service_records").
		Where(sq.Eq{"vehicle_id": vehicleID}).
		OrderBy("performed_at ASC", "odometer_miles ASC")
}

func (s *Store) ListServiceRecords(ctx context.Context, vehicleID string) ([]domain.ServiceRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListServiceRecords")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	sqlStr, args, err := selectServiceRecords(s.sb, vehicleID).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/service_records", Err: err}
	}
	defer rows.Close()

	records := make([]domain.ServiceRecord, 0)
	for rows.Next() {
		var r domain.ServiceRecord
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.ServiceTypeID, &r.PerformedAt, &r.Odometer); err != nil {
			return nil, fmt.Errorf("scan service record: %w", err)
		}
		r.PerformedAt = r.PerformedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/service_records", Err: err}
	}
	return records, nil
}

func insertServiceRecord(sb sq.StatementBuilderType, rec *domain.ServiceRecord) sq.InsertBuilder {
	return sb.
		Insert("service_records").
		Columns("id", "vehicle_id", "service_type_id", "performed_at", "odometer_miles").
		Values(rec.ID, rec.VehicleID, rec.ServiceTypeID, rec.PerformedAt.UTC(), rec.Odometer)
}

func (s *Store) AppendServiceRecord(ctx context.Context, rec *domain.ServiceRecord) error {
	ctx, span := tracer.Start(ctx, "Postgres.AppendServiceRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("vehicle.id", rec.VehicleID),
		attribute.String("service_type.id", rec.ServiceTypeID),
	)

	if rec.ID == "" {
		return &domain.ErrInvalidInput{Field: "id", Message: "service record id is required"}
	}

	sqlStr, args, err := insertServiceRecord(s.sb, rec).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return &domain.ErrExternalService{Service: "postgres/service_records", Err: err}
	}
	return nil
}

// ============================================================
// Onboarding answers
// ============================================================

func selectProfile(sb sq.StatementBuilderType, vehicleID string) sq.SelectBuilder {
	return sb.
		Select("vehicle_id", "biggest_worry", "last_service_bucket", "fair_price_knowledge", "pressure_experience", "updated_at").
		From("onboarding_profiles").
		Where(sq.Eq{"vehicle_id": vehicleID})
}

func (s *Store) GetProfile(ctx context.Context, vehicleID string) (*domain.OnboardingProfile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	sqlStr, args, err := selectProfile(s.sb, vehicleID).ToSql()
	if err != nil {
		return nil, err
	}

	var (
		p                                  domain.OnboardingProfile
		worry, bucket, knowledge, pressure string
		updatedAt                          time.Time
	)
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&p.VehicleID, &worry, &bucket, &knowledge, &pressure, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.ErrExternalService{Service: "postgres/onboarding_profiles", Err: err}
	}
	p.BiggestWorry = domain.BiggestWorry(worry)
	p.LastServiceBucket = domain.LastServiceBucket(bucket)
	p.FairPriceKnowledge = domain.FairPriceKnowledge(knowledge)
	p.PressureExperience = domain.PressureExperience(pressure)
	p.UpdatedAt = updatedAt.UTC()
	return &p, nil
}

func upsertProfile(sb sq.StatementBuilderType, p *domain.OnboardingProfile) sq.InsertBuilder {
	return sb.
		Insert("onboarding_profiles").
		Columns("vehicle_id", "biggest_worry", "last_service_bucket", "fair_price_knowledge", "pressure_experience", "updated_at").
		Values(p.VehicleID, string(p.BiggestWorry), string(p.LastServiceBucket), string(p.FairPriceKnowledge), string(p.PressureExperience), p.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (vehicle_id) DO UPDATE SET
			biggest_worry = EXCLUDED.biggest_worry,
			last_service_bucket = EXCLUDED.last_service_bucket,
			fair_price_knowledge = EXCLUDED.fair_price_knowledge,
			pressure_experience = EXCLUDED.pressure_experience,
			updated_at = EXCLUDED.updated_at`)
}

func (s *Store) SaveProfile(ctx context.Context, p *domain.OnboardingProfile) error {
	ctx, span := tracer.Start(ctx, "Postgres.SaveProfile")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", p.VehicleID))

	sqlStr, args, err := upsertProfile(s.sb, p).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return &domain.ErrExternalService{Service: "postgres/onboarding_profiles", Err: err}
	}
	return nil
}
