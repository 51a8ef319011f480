package supabase

import (
	"context"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Onboarding answers (implements port.ProfileStore)
// ============================================================

type onboardingRow struct {
	VehicleID          string `json:"vehicle_id"`
	BiggestWorry       string `json:"biggest_worry,omitempty"`
	LastServiceBucket  string `json:"last_service_bucket,omitempty"`
	FairPriceKnowledge string `json:"fair_price_knowledge,omitempty"`
	PressureExperience string `json:"pressure_experience,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// GetProfile returns the questionnaire answers, or nil when none were given.
func (c *Client) GetProfile(ctx context.Context, vehicleID string) (*domain.OnboardingProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	var profile *domain.OnboardingProfile
	err := c.call(ctx, "onboarding_profiles", func() error {
		var rows []onboardingRow
		found, err := c.doGet(ctx, "onboarding_profiles?"+eq("vehicle_id", vehicleID)+"&limit=1", &rows)
		if err != nil || !found || len(rows) == 0 {
			return err
		}
		r := rows[0]
		updated, _ := time.Parse(time.RFC3339, r.UpdatedAt)
		profile = &domain.OnboardingProfile{
			VehicleID:          r.VehicleID,
			BiggestWorry:       domain.BiggestWorry(r.BiggestWorry),
			LastServiceBucket:  domain.LastServiceBucket(r.LastServiceBucket),
			FairPriceKnowledge: domain.FairPriceKnowledge(r.FairPriceKnowledge),
			PressureExperience: domain.PressureExperience(r.PressureExperience),
			UpdatedAt:          updated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveProfile upserts the answers keyed by vehicle.
func (c *Client) SaveProfile(ctx context.Context, profile *domain.OnboardingProfile) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveProfile")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", profile.VehicleID))

	row := onboardingRow{
		VehicleID:          profile.VehicleID,
		BiggestWorry:       string(profile.BiggestWorry),
		LastServiceBucket:  string(profile.LastServiceBucket),
		FairPriceKnowledge: string(profile.FairPriceKnowledge),
		PressureExperience: string(profile.PressureExperience),
		UpdatedAt:          profile.UpdatedAt.UTC().Format(time.RFC3339),
	}
	return c.call(ctx, "onboarding_profiles", func() error {
		return c.doUpsert(ctx, "onboarding_profiles", "vehicle_id", row)
	})
}
