package observability_test

import (
	"testing"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/observability"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.RecordTasks([]domain.MaintenanceTask{
		{State: domain.StateOverdue},
		{State: domain.StateOverdue},
		{State: domain.StateScheduled},
	})
	m.RecordRisk(domain.RiskHigh)
	m.RecordVisibility([]domain.ItemVisibility{{Visibility: domain.Visible}, {Visibility: domain.Hidden}})
	m.RecordQuote(domain.VerdictWithinRange)
	m.IncrValidationError()
	m.IncrCacheHit("vehicle")
	m.IncrCacheHit("vehicle")
	m.IncrCacheHit("vehicle")
	m.IncrCacheMiss("vehicle")

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TasksComputed)
	assert.Equal(t, int64(2), snap.TasksByState["overdue"])
	assert.Equal(t, int64(0), snap.TasksByState["due-soon"])
	assert.Equal(t, int64(1), snap.RiskByLevel["high"])
	assert.Equal(t, int64(1), snap.VisibilityVerdict["hidden"])
	assert.Equal(t, int64(1), snap.QuotesByVerdict["within-range"])
	assert.Equal(t, int64(1), snap.ValidationErrors)
	assert.InDelta(t, 0.75, snap.CacheHitRate, 1e-9)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.RecordRisk(domain.RiskLow)

	assert.Equal(t, int64(0), b.Snapshot().RiskByLevel["low"])
}
