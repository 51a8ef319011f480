package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Service log: POST /v1/vehicles/{vehicleId}/service-records
// ============================================================

// RecordService appends a completed service to the log. A record whose
// odometer is ahead of the vehicle's also advances the vehicle odometer.
func (s *Maintenance) RecordService(ctx context.Context, vehicleID string, req *domain.ServiceRecordRequest) (*domain.ServiceRecord, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.RecordService")
	defer span.End()
	span.SetAttributes(
		attribute.String("vehicle.id", vehicleID),
		attribute.String("service_type.id", req.ServiceTypeID),
	)

	if err := s.validateRecord(req); err != nil {
		s.countValidation(err)
		return nil, err
	}

	s.invalidateVehicle(vehicleID)
	vehicle, err := s.getVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	rec := &domain.ServiceRecord{
		ID:            uuid.New().String(),
		VehicleID:     vehicleID,
		ServiceTypeID: req.ServiceTypeID,
		PerformedAt:   req.PerformedAt.UTC(),
		Odometer:      req.Odometer,
	}
	// The odometer moves first so the log never holds a reading ahead of it.
	if rec.Odometer > vehicle.Odometer {
		if err := s.store.UpdateOdometer(ctx, vehicleID, rec.Odometer); err != nil {
			return nil, fmt.Errorf("advance odometer: %w", err)
		}
		s.invalidateVehicle(vehicleID)
	}
	if err := s.store.AppendServiceRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("append service record: %w", err)
	}
	s.invalidateVehicle(vehicleID)
	s.clearNotified(vehicleID, rec.ServiceTypeID)

	s.logger.Info("service recorded",
		zap.String("vehicle_id", vehicleID),
		zap.String("service_type_id", rec.ServiceTypeID),
		zap.String("record_id", rec.ID),
	)
	return rec, nil
}

func (s *Maintenance) validateRecord(req *domain.ServiceRecordRequest) error {
	if _, ok := s.catalog.Get(req.ServiceTypeID); !ok {
		return &domain.ErrInvalidInput{Field: "serviceTypeId", Message: "unknown service type " + req.ServiceTypeID}
	}
	if req.PerformedAt.IsZero() {
		return &domain.ErrInvalidInput{Field: "performedAt", Message: "date is required"}
	}
	if req.PerformedAt.After(s.clock.Now()) {
		return &domain.ErrInvalidInput{Field: "performedAt", Message: "date is in the future"}
	}
	if req.Odometer < 0 || math.IsNaN(req.Odometer) || math.IsInf(req.Odometer, 0) {
		return &domain.ErrInvalidInput{Field: "odometer", Message: "must be a non-negative number"}
	}
	return nil
}

// ============================================================
// Onboarding: PUT /v1/vehicles/{vehicleId}/onboarding
// ============================================================

// SaveOnboardingProfile stores the questionnaire answers. Latest write wins.
func (s *Maintenance) SaveOnboardingProfile(ctx context.Context, vehicleID string, profile *domain.OnboardingProfile) (*domain.OnboardingProfile, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.SaveOnboardingProfile")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	if err := profile.Validate(); err != nil {
		s.countValidation(err)
		return nil, err
	}
	if _, err := s.getVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	saved := *profile
	saved.VehicleID = vehicleID
	saved.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.SaveProfile(ctx, &saved); err != nil {
		return nil, fmt.Errorf("save onboarding profile: %w", err)
	}
	return &saved, nil
}

// ============================================================
// Odometer: PUT /v1/vehicles/{vehicleId}/odometer
// ============================================================

// UpdateOdometer records a new reading. Readings never go backwards.
func (s *Maintenance) UpdateOdometer(ctx context.Context, vehicleID string, miles float64) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.UpdateOdometer")
	defer span.End()
	span.SetAttributes(
		attribute.String("vehicle.id", vehicleID),
		attribute.Float64("odometer.miles", miles),
	)

	if miles < 0 || math.IsNaN(miles) || math.IsInf(miles, 0) {
		err := &domain.ErrInvalidInput{Field: "miles", Message: "must be a non-negative number"}
		s.countValidation(err)
		return nil, err
	}

	s.invalidateVehicle(vehicleID)
	vehicle, err := s.getVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if miles < vehicle.Odometer {
		err := &domain.ErrInvalidInput{
			Field:   "miles",
			Message: fmt.Sprintf("reading %.1f is below the current odometer %.1f", miles, vehicle.Odometer),
		}
		s.countValidation(err)
		return nil, err
	}
	if miles == vehicle.Odometer {
		return vehicle, nil
	}

	if err := s.store.UpdateOdometer(ctx, vehicleID, miles); err != nil {
		return nil, fmt.Errorf("update odometer: %w", err)
	}
	s.invalidateVehicle(vehicleID)

	vehicle.Odometer = miles
	return vehicle, nil
}

// SyncOdometer pulls the latest reading from the telematics provider.
// Readings behind the stored odometer are ignored.
func (s *Maintenance) SyncOdometer(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.SyncOdometer")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	if s.odometer == nil {
		return nil, &domain.ErrNotFound{Resource: "odometer source", ID: vehicleID}
	}

	reading, err := s.odometer.ReadOdometer(ctx, vehicleID)
	if err == nil && reading == nil {
		err = &domain.ErrExternalService{Service: "telematics", Err: errors.New("empty odometer reading")}
	}
	if err != nil {
		s.metrics.IncrExternalError("telematics")
		return nil, fmt.Errorf("read odometer: %w", err)
	}

	vehicle, err := s.UpdateOdometer(ctx, vehicleID, reading.Miles)
	var invalid *domain.ErrInvalidInput
	if errors.As(err, &invalid) && invalid.Field == "miles" {
		s.logger.Warn("stale odometer reading ignored",
			zap.String("vehicle_id", vehicleID),
			zap.Float64("miles", reading.Miles),
		)
		return s.getVehicle(ctx, vehicleID)
	}
	return vehicle, err
}

func (s *Maintenance) countValidation(err error) {
	var invalid *domain.ErrInvalidInput
	var interval *domain.ErrInvalidInterval
	if errors.As(err, &invalid) || errors.As(err, &interval) {
		s.metrics.IncrValidationError()
	}
}
