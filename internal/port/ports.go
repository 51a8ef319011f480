// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete storage, messaging and telematics implementations.
package port

import (
	"context"

	"github.com/boddenberg/carcare-engine/internal/domain"
)

// VehicleStore persists vehicle identity and the latest odometer reading.
type VehicleStore interface {
	GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error)
	UpdateOdometer(ctx context.Context, vehicleID string, miles float64) error
}

// ServiceRecordStore is the append-only service log.
type ServiceRecordStore interface {
	ListServiceRecords(ctx context.Context, vehicleID string) ([]domain.ServiceRecord, error)
	AppendServiceRecord(ctx context.Context, rec *domain.ServiceRecord) error
}

// ProfileStore keeps the onboarding questionnaire. Latest write wins.
// GetProfile returns (nil, nil) when the vehicle has no profile yet.
type ProfileStore interface {
	GetProfile(ctx context.Context, vehicleID string) (*domain.OnboardingProfile, error)
	SaveProfile(ctx context.Context, profile *domain.OnboardingProfile) error
}

// Store groups every persistence port. Each backend implements all of them.
type Store interface {
	VehicleStore
	ServiceRecordStore
	ProfileStore
	Ping(ctx context.Context) error
}

// EventPublisher emits domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// OdometerSource reads the current odometer from a telematics provider.
type OdometerSource interface {
	ReadOdometer(ctx context.Context, vehicleID string) (*domain.OdometerReading, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
