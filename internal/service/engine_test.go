package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTask(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	task, err := f.svc.ComputeTask(context.Background(), &domain.ComputeTaskRequest{
		Vehicle:       domain.Vehicle{ID: "v9", Odometer: 84500},
		ServiceTypeID: "oil-change",
		LastRecord:    &domain.ServiceRecord{PerformedAt: at.AddDate(0, -1, 0), Odometer: 80000},
		Now:           &at,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDueSoon, task.State)
	assert.Equal(t, 90.0, task.Progress)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
}

func TestComputeTask_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ComputeTask(context.Background(), &domain.ComputeTaskRequest{ServiceTypeID: "warp-core"})
	var invalid *domain.ErrInvalidInput
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "serviceTypeId", invalid.Field)

	_, err = f.svc.ComputeTask(context.Background(), &domain.ComputeTaskRequest{
		Vehicle:       domain.Vehicle{Odometer: -1},
		ServiceTypeID: "oil-change",
	})
	assert.True(t, errors.As(err, &invalid))
}

func TestAssessRisk(t *testing.T) {
	f := newFixture(t)

	risk, err := f.svc.AssessRisk(context.Background(), &domain.RiskRequest{
		Profile: &domain.OnboardingProfile{LastServiceBucket: domain.LastService6To12},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskModerate, risk.Level)

	_, err = f.svc.AssessRisk(context.Background(), &domain.RiskRequest{
		Profile: &domain.OnboardingProfile{LastServiceBucket: "last-tuesday"},
	})
	var invalid *domain.ErrInvalidInput
	assert.True(t, errors.As(err, &invalid))
}

func TestResolveVisibility(t *testing.T) {
	f := newFixture(t)
	items := []domain.ContentItem{
		{ID: "a", Section: "guides", RequiredTier: domain.Tier{Kind: domain.TierPro}},
		{ID: "b", Section: "guides", RequiredTier: domain.Tier{Kind: domain.TierPro}},
		{ID: "c", Section: "guides", RequiredTier: domain.Tier{Kind: domain.TierBasic}},
	}

	got := f.svc.ResolveVisibility(context.Background(), domain.Tier{Kind: domain.TierFree}, items)
	require.Len(t, got, 3)
	assert.Equal(t, domain.Visible, got[0].Visibility)
	assert.Equal(t, domain.Hidden, got[1].Visibility)
	assert.Equal(t, domain.BlurredPreview, got[2].Visibility)

	snap := f.svc.MetricsSnapshot()
	assert.Equal(t, int64(1), snap.VisibilityVerdict["hidden"])
}

func TestEvaluateQuote_DefaultLaborRate(t *testing.T) {
	f := newFixture(t)

	eval, err := f.svc.EvaluateQuote(context.Background(), &domain.QuoteRequest{
		Lines: []domain.QuoteLineItem{{Description: "Oil and filter", Quantity: 1, UnitCost: 20, LaborHours: 0.3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, eval.LaborRate)
	assert.Equal(t, 50.0, eval.TotalCost)
	assert.Equal(t, domain.VerdictWithinRange, eval.Verdict)
	assert.Equal(t, []string{domain.SubjectQuoteEvaluated}, f.pub.subjects())
}

func TestEvaluateQuotes_KeepsOrder(t *testing.T) {
	f := newFixture(t)
	rate := 0.0
	reqs := []domain.QuoteRequest{
		{Lines: []domain.QuoteLineItem{{Description: "oil change", Quantity: 1, UnitCost: 500}}, LaborRate: &rate},
		{Lines: []domain.QuoteLineItem{{Description: "oil change", Quantity: 1, UnitCost: 50}}, LaborRate: &rate},
		{Lines: []domain.QuoteLineItem{{Description: "oil change", Quantity: 1, UnitCost: 5}}, LaborRate: &rate},
		{Lines: []domain.QuoteLineItem{{Description: "flux capacitor", Quantity: 1, UnitCost: 5}}, LaborRate: &rate},
	}

	evals, err := f.svc.EvaluateQuotes(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, evals, 4)
	assert.Equal(t, domain.VerdictAboveRange, evals[0].Verdict)
	assert.Equal(t, domain.VerdictWithinRange, evals[1].Verdict)
	assert.Equal(t, domain.VerdictBelowRange, evals[2].Verdict)
	assert.Equal(t, domain.VerdictUnknown, evals[3].Verdict)
	assert.Len(t, f.pub.subjects(), 4)
}

func TestEvaluateQuotes_InvalidFailsBatch(t *testing.T) {
	f := newFixture(t)
	reqs := []domain.QuoteRequest{
		{Lines: []domain.QuoteLineItem{{Description: "oil change", Quantity: 1, UnitCost: 50}}},
		{Lines: []domain.QuoteLineItem{{Description: "oil change", Quantity: -1, UnitCost: 50}}},
	}

	_, err := f.svc.EvaluateQuotes(context.Background(), reqs)
	var invalid *domain.ErrInvalidInput
	assert.True(t, errors.As(err, &invalid))
}

func TestEntitlementTokens(t *testing.T) {
	tokens := service.NewEntitlementTokens("s3cret", "carcare-billing")

	signed, err := tokens.Sign("user-1", domain.PayPerService("oil-change"), time.Hour)
	require.NoError(t, err)

	tier, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.PayPerService("oil-change"), tier)

	var unauthorized *domain.ErrUnauthorized

	_, err = service.NewEntitlementTokens("other", "carcare-billing").Validate(signed)
	assert.True(t, errors.As(err, &unauthorized))

	_, err = service.NewEntitlementTokens("s3cret", "someone-else").Validate(signed)
	assert.True(t, errors.As(err, &unauthorized))

	expired, err := tokens.Sign("user-1", domain.Tier{Kind: domain.TierPro}, -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Validate(expired)
	assert.True(t, errors.As(err, &unauthorized))

	_, err = tokens.Validate("not-a-jwt")
	assert.True(t, errors.As(err, &unauthorized))
}
