package engine

import (
	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/samber/lo"
)

// ============================================================
// Entitlement Gate
// ============================================================

// ResolveVisibility decides how an item renders for the current tier. It is
// total: every (tier, item) pair maps to exactly one verdict.
func ResolveVisibility(current domain.Tier, item domain.ContentItem, p Policy) domain.Visibility {
	if item.Category != "" && lo.Contains(p.AlwaysVisibleCategories, item.Category) {
		return domain.Visible
	}

	required := item.RequiredTier
	if current.Kind == domain.TierPayPerService && required.Kind == domain.TierPayPerService &&
		current.ServiceTypeID != "" && current.ServiceTypeID == required.ServiceTypeID {
		return domain.Visible
	}

	gap := p.requiredRank(required) - p.currentRank(current)
	switch {
	case gap <= 0:
		return domain.Visible
	case gap <= p.PreviewRungs:
		return domain.BlurredPreview
	default:
		return domain.Hidden
	}
}

// ResolveSection gates a whole screen section. The first FreeItemsPerSection
// gated items of each section, in input order, are visible regardless of
// tier. Items the tier or an always-visible category already shows do not
// use up a free slot.
func ResolveSection(current domain.Tier, items []domain.ContentItem, p Policy) []domain.ItemVisibility {
	granted := make(map[string]int)
	out := make([]domain.ItemVisibility, 0, len(items))
	for _, item := range items {
		v := ResolveVisibility(current, item, p)
		if v != domain.Visible && granted[item.Section] < p.FreeItemsPerSection {
			v = domain.Visible
			granted[item.Section]++
		}
		out = append(out, domain.ItemVisibility{ID: item.ID, Section: item.Section, Visibility: v})
	}
	return out
}

// currentRank: pay-per-service and unrecognised tiers behave as free.
func (p Policy) currentRank(t domain.Tier) int {
	if r := p.rankOf(t.Kind); r >= 0 && t.Kind != domain.TierPayPerService {
		return r
	}
	return max(p.rankOf(domain.TierFree), 0)
}

// requiredRank: empty means free, pay-per-service content sits on
// PayPerServiceRank, anything unrecognised sits on the top rung.
func (p Policy) requiredRank(t domain.Tier) int {
	switch t.Kind {
	case "":
		return max(p.rankOf(domain.TierFree), 0)
	case domain.TierPayPerService:
		if r := p.rankOf(p.PayPerServiceRank); r >= 0 {
			return r
		}
		return len(p.TierLadder) - 1
	}
	if r := p.rankOf(t.Kind); r >= 0 {
		return r
	}
	return len(p.TierLadder) - 1
}
