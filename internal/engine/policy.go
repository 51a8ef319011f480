// Package engine holds the maintenance risk & entitlement rules. Every exported
// function is a pure computation over its arguments: no clocks, no I/O, no
// shared state. Policy constants are passed in explicitly.
package engine

import (
	"fmt"

	"github.com/boddenberg/carcare-engine/internal/domain"
)

// Policy groups every tunable rule of the engine.
type Policy struct {
	// Tracker: progress cut points in percent of interval consumed.
	DueSoonThreshold float64
	OverdueThreshold float64

	// Tracker: basePriorityWeight cut points and per-state escalation steps.
	MediumWeight int
	HighWeight   int
	Escalation   map[domain.TaskState]int

	// Risk
	UnknownRisk       domain.RiskLevel
	MultiOverdueCount int

	// Entitlement
	TierLadder              []domain.TierKind
	PayPerServiceRank       domain.TierKind // rung that pay-per-service content sits on
	PreviewRungs            int
	FreeItemsPerSection     int
	AlwaysVisibleCategories []string

	// Quotes
	DefaultRegion string
}

// DefaultPolicy returns the production rule set.
func DefaultPolicy() Policy {
	return Policy{
		DueSoonThreshold: 80,
		OverdueThreshold: 100,

		MediumWeight: 4,
		HighWeight:   7,
		Escalation: map[domain.TaskState]int{
			domain.StateScheduled: 0,
			domain.StateDueSoon:   1,
			domain.StateOverdue:   2,
		},

		UnknownRisk:       domain.RiskModerate,
		MultiOverdueCount: 2,

		TierLadder:              []domain.TierKind{domain.TierFree, domain.TierBasic, domain.TierPro},
		PayPerServiceRank:       domain.TierBasic,
		PreviewRungs:            1,
		FreeItemsPerSection:     1,
		AlwaysVisibleCategories: []string{domain.SafetyAlertCategory},

		DefaultRegion: "national",
	}
}

// Validate rejects rule sets the engine cannot apply consistently.
func (p Policy) Validate() error {
	if p.DueSoonThreshold <= 0 || p.OverdueThreshold <= 0 {
		return &domain.ErrInvalidInput{Field: "policy.thresholds", Message: "thresholds must be positive"}
	}
	if p.DueSoonThreshold > p.OverdueThreshold {
		return &domain.ErrInvalidInput{
			Field:   "policy.thresholds",
			Message: fmt.Sprintf("due-soon threshold %.2f above overdue threshold %.2f", p.DueSoonThreshold, p.OverdueThreshold),
		}
	}
	if p.MediumWeight > p.HighWeight {
		return &domain.ErrInvalidInput{Field: "policy.weights", Message: "medium weight cut point above high"}
	}
	if p.Escalation[domain.StateOverdue] <= p.Escalation[domain.StateDueSoon] ||
		p.Escalation[domain.StateOverdue] <= p.Escalation[domain.StateScheduled] {
		return &domain.ErrInvalidInput{Field: "policy.escalation", Message: "overdue must escalate above due-soon and scheduled"}
	}
	if p.UnknownRisk.Rank() < 0 {
		return &domain.ErrInvalidInput{Field: "policy.unknownRisk", Message: "unknown risk level " + string(p.UnknownRisk)}
	}
	if p.MultiOverdueCount < 1 {
		return &domain.ErrInvalidInput{Field: "policy.multiOverdueCount", Message: "must be at least 1"}
	}
	if len(p.TierLadder) == 0 {
		return &domain.ErrInvalidInput{Field: "policy.tierLadder", Message: "ladder is empty"}
	}
	if p.rankOf(domain.TierFree) < 0 {
		return &domain.ErrInvalidInput{Field: "policy.tierLadder", Message: "ladder must contain free"}
	}
	if p.rankOf(p.PayPerServiceRank) < 0 {
		return &domain.ErrInvalidInput{Field: "policy.payPerServiceRank", Message: "rung not on ladder: " + string(p.PayPerServiceRank)}
	}
	if p.PreviewRungs < 0 || p.FreeItemsPerSection < 0 {
		return &domain.ErrInvalidInput{Field: "policy.entitlement", Message: "counts must not be negative"}
	}
	if p.DefaultRegion == "" {
		return &domain.ErrInvalidInput{Field: "policy.defaultRegion", Message: "must be set"}
	}
	return nil
}

func (p Policy) rankOf(kind domain.TierKind) int {
	for i, k := range p.TierLadder {
		if k == kind {
			return i
		}
	}
	return -1
}
