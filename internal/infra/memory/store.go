// Package memory is an in-process store for local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/samber/lo"
)

type Store struct {
	mu       sync.RWMutex
	vehicles map[string]domain.Vehicle
	records  []domain.ServiceRecord
	profiles map[string]domain.OnboardingProfile
}

func NewStore() *Store {
	return &Store{
		vehicles: make(map[string]domain.Vehicle),
		profiles: make(map[string]domain.OnboardingProfile),
	}
}

// PutVehicle registers or replaces a vehicle. Vehicle onboarding lives
// outside the engine, so this is only used for seeding.
func (s *Store) PutVehicle(v domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) GetVehicle(_ context.Context, vehicleID string) (*domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
	}
	return &v, nil
}

func (s *Store) UpdateOdometer(_ context.Context, vehicleID string, miles float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return &domain.ErrNotFound{Resource: "vehicle", ID: vehicleID}
	}
	v.Odometer = miles
	s.vehicles[vehicleID] = v
	return nil
}

func (s *Store) ListServiceRecords(_ context.Context, vehicleID string) ([]domain.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Filter(s.records, func(r domain.ServiceRecord, _ int) bool {
		return r.VehicleID == vehicleID
	})
	slices.SortStableFunc(out, func(a, b domain.ServiceRecord) int {
		return a.PerformedAt.Compare(b.PerformedAt)
	})
	return out, nil
}

func (s *Store) AppendServiceRecord(_ context.Context, rec *domain.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[rec.VehicleID]; !ok {
		return &domain.ErrNotFound{Resource: "vehicle", ID: rec.VehicleID}
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *Store) GetProfile(_ context.Context, vehicleID string) (*domain.OnboardingProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[vehicleID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) SaveProfile(_ context.Context, p *domain.OnboardingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[p.VehicleID]; !ok {
		return &domain.ErrNotFound{Resource: "vehicle", ID: p.VehicleID}
	}
	s.profiles[p.VehicleID] = *p
	return nil
}
