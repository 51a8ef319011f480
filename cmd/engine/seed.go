package main

import (
	"context"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/memory"

	"github.com/google/uuid"
)

// demoVehicleID is the vehicle the in-memory backend starts with.
const demoVehicleID = "demo"

// seedDemo loads one vehicle with a short service history so that every
// route has something to show without a database.
func seedDemo(s *memory.Store, now time.Time) {
	ctx := context.Background()
	s.PutVehicle(domain.Vehicle{
		ID:       demoVehicleID,
		Year:     2019,
		Make:     "Honda",
		Model:    "Civic",
		Trim:     "EX",
		Odometer: 48200,
		OwnerID:  "demo-owner",
	})

	history := []struct {
		serviceTypeID string
		ago           time.Duration
		odometer      float64
	}{
		{"oil-change", 210 * 24 * time.Hour, 42100},
		{"tire-rotation", 120 * 24 * time.Hour, 44800},
		{"brake-inspection", 400 * 24 * time.Hour, 36500},
		{"wiper-blades", 90 * 24 * time.Hour, 45900},
	}
	for _, h := range history {
		_ = s.AppendServiceRecord(ctx, &domain.ServiceRecord{
			ID:            uuid.NewString(),
			VehicleID:     demoVehicleID,
			ServiceTypeID: h.serviceTypeID,
			PerformedAt:   now.Add(-h.ago),
			Odometer:      h.odometer,
		})
	}

	_ = s.SaveProfile(ctx, &domain.OnboardingProfile{
		VehicleID:          demoVehicleID,
		BiggestWorry:       domain.WorryRippedOff,
		LastServiceBucket:  domain.LastService3To6,
		FairPriceKnowledge: domain.FairPriceNo,
		PressureExperience: domain.PressureYes,
		UpdatedAt:          now,
	})
}
