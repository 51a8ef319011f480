package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/samber/lo"
)

// ============================================================
// Risk Assessment
// ============================================================

var bucketBaseline = map[domain.LastServiceBucket]domain.RiskLevel{
	domain.LastService0To3:       domain.RiskLow,
	domain.LastService3To6:       domain.RiskLow,
	domain.LastService6To12:      domain.RiskModerate,
	domain.LastServiceOverYear:   domain.RiskHigh,
	domain.LastServiceCantRecall: domain.RiskHigh,
}

// AssessRisk classifies a vehicle from the onboarding answers and the current
// overdue set. Tasks that are not overdue are ignored. The result does not
// depend on the order of tasks, and neither input is modified.
//
// Overdue high-priority work dominates self-reported history: a single such
// task forces the level to high whatever the questionnaire says.
func AssessRisk(profile *domain.OnboardingProfile, tasks []domain.MaintenanceTask, p Policy) (domain.RiskAssessment, error) {
	if profile != nil {
		if err := profile.Validate(); err != nil {
			return domain.RiskAssessment{}, err
		}
	}

	overdue := OverdueTasks(tasks)
	if profile == nil && len(overdue) == 0 {
		return domain.RiskAssessment{
			Level:   p.UnknownRisk,
			Reasons: []string{"no questionnaire or overdue service on file"},
		}, nil
	}

	level, reasons := baseline(profile, p)
	baseLow := level == domain.RiskLow

	mediumPlus := lo.Filter(overdue, func(t domain.MaintenanceTask, _ int) bool {
		return t.Priority.Rank() >= domain.PriorityMedium.Rank()
	})
	if baseLow && len(mediumPlus) >= p.MultiOverdueCount {
		level = domain.RiskFromRank(level.Rank() + 1)
		reasons = append(reasons, fmt.Sprintf("%d overdue services at medium priority or above: %s",
			len(mediumPlus), joinIDs(mediumPlus)))
	}

	high := lo.Filter(overdue, func(t domain.MaintenanceTask, _ int) bool {
		return t.Priority == domain.PriorityHigh
	})
	if len(high) > 0 {
		if level.Rank() < domain.RiskHigh.Rank() {
			level = domain.RiskHigh
		}
		reasons = append(reasons, "overdue high-priority service: "+joinIDs(high))
	}

	return domain.RiskAssessment{Level: level, Reasons: reasons}, nil
}

func baseline(profile *domain.OnboardingProfile, p Policy) (domain.RiskLevel, []string) {
	if profile == nil || profile.LastServiceBucket == "" {
		return p.UnknownRisk, []string{"last service date unknown"}
	}
	level := bucketBaseline[profile.LastServiceBucket]
	return level, []string{fmt.Sprintf("last service reported as %s", describeBucket(profile.LastServiceBucket))}
}

func describeBucket(b domain.LastServiceBucket) string {
	switch b {
	case domain.LastService0To3:
		return "0-3 months ago"
	case domain.LastService3To6:
		return "3-6 months ago"
	case domain.LastService6To12:
		return "6-12 months ago"
	case domain.LastServiceOverYear:
		return "over a year ago"
	default:
		return "not remembered"
	}
}

func joinIDs(tasks []domain.MaintenanceTask) string {
	ids := lo.Uniq(lo.Map(tasks, func(t domain.MaintenanceTask, _ int) string { return t.ServiceTypeID }))
	slices.Sort(ids)
	return strings.Join(ids, ", ")
}
