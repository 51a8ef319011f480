package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/memory"
	"github.com/boddenberg/carcare-engine/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ port.Store = (*memory.Store)(nil)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	s.PutVehicle(domain.Vehicle{ID: "v1", Make: "Honda", Odometer: 1000})

	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendServiceRecord(ctx, &domain.ServiceRecord{ID: "b", VehicleID: "v1", PerformedAt: mar}))
	require.NoError(t, s.AppendServiceRecord(ctx, &domain.ServiceRecord{ID: "a", VehicleID: "v1", PerformedAt: jan}))

	records, err := s.ListServiceRecords(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)

	require.NoError(t, s.UpdateOdometer(ctx, "v1", 2500))
	v, err := s.GetVehicle(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, v.Odometer)

	p, err := s.GetProfile(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.SaveProfile(ctx, &domain.OnboardingProfile{VehicleID: "v1", LastServiceBucket: domain.LastService3To6}))
	require.NoError(t, s.SaveProfile(ctx, &domain.OnboardingProfile{VehicleID: "v1", LastServiceBucket: domain.LastServiceOverYear}))
	p, err = s.GetProfile(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, domain.LastServiceOverYear, p.LastServiceBucket)
}

func TestStore_UnknownVehicle(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	var notFound *domain.ErrNotFound
	_, err := s.GetVehicle(ctx, "nope")
	assert.True(t, errors.As(err, &notFound))
	assert.True(t, errors.As(s.UpdateOdometer(ctx, "nope", 1), &notFound))
	assert.True(t, errors.As(s.AppendServiceRecord(ctx, &domain.ServiceRecord{VehicleID: "nope"}), &notFound))
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	s.PutVehicle(domain.Vehicle{ID: "v1", Odometer: 1000})

	v, _ := s.GetVehicle(ctx, "v1")
	v.Odometer = 5

	again, _ := s.GetVehicle(ctx, "v1")
	assert.Equal(t, 1000.0, again.Odometer)
}
