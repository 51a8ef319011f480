package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/samber/lo"
)

// ============================================================
// Quote Price Evaluator
// ============================================================

// QuoteContext carries the shop-specific inputs of an evaluation.
type QuoteContext struct {
	LaborRate float64 `json:"laborRate"`
	Region    string  `json:"region,omitempty"`
}

// EvaluateQuote checks every line of a shop quote against the catalog's fair
// price ranges. Lines that cannot be matched or priced are reported as
// unknown with an issue instead of failing the whole quote.
func EvaluateQuote(lines []domain.QuoteLineItem, catalog *Catalog, qc QuoteContext, p Policy) (domain.QuoteEvaluation, error) {
	if qc.LaborRate < 0 || math.IsNaN(qc.LaborRate) {
		return domain.QuoteEvaluation{}, &domain.ErrInvalidInput{Field: "laborRate", Message: "must be a non-negative number"}
	}
	region := strings.ToLower(strings.TrimSpace(qc.Region))
	if region == "" {
		region = p.DefaultRegion
	}

	eval := domain.QuoteEvaluation{
		Lines:     make([]domain.LineEvaluation, 0, len(lines)),
		Region:    region,
		LaborRate: qc.LaborRate,
	}
	for i, line := range lines {
		if err := validateLine(i, line); err != nil {
			return domain.QuoteEvaluation{}, err
		}
		le := evaluateLine(i, line, catalog, region, qc.LaborRate, p)
		eval.TotalCost += le.Cost
		if le.Verdict != domain.VerdictUnknown {
			eval.PricedCost += le.Cost
		}
		eval.Lines = append(eval.Lines, le)
	}
	eval.TotalCost = roundCents(eval.TotalCost)
	eval.PricedCost = roundCents(eval.PricedCost)
	eval.Verdict = AggregateVerdict(eval.Lines)
	return eval, nil
}

func validateLine(i int, line domain.QuoteLineItem) error {
	field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
	switch {
	case line.Quantity < 0:
		return &domain.ErrInvalidInput{Field: field("quantity"), Message: "must not be negative"}
	case line.LaborHours < 0 || math.IsNaN(line.LaborHours):
		return &domain.ErrInvalidInput{Field: field("laborHours"), Message: "must be a non-negative number"}
	case line.UnitCost < 0 || math.IsNaN(line.UnitCost):
		return &domain.ErrInvalidInput{Field: field("unitCost"), Message: "must be a non-negative number"}
	case line.TotalCost != nil && (*line.TotalCost < 0 || math.IsNaN(*line.TotalCost)):
		return &domain.ErrInvalidInput{Field: field("totalCost"), Message: "must be a non-negative number"}
	}
	return nil
}

// LineCost is the quoted price of a line: the direct total when given,
// otherwise parts plus labor.
func LineCost(line domain.QuoteLineItem, laborRate float64) float64 {
	if line.TotalCost != nil {
		return roundCents(*line.TotalCost)
	}
	return roundCents(float64(line.Quantity)*line.UnitCost + line.LaborHours*laborRate)
}

func evaluateLine(i int, line domain.QuoteLineItem, catalog *Catalog, region string, laborRate float64, p Policy) domain.LineEvaluation {
	le := domain.LineEvaluation{
		Index:       i,
		Description: line.Description,
		Cost:        LineCost(line, laborRate),
		Verdict:     domain.VerdictUnknown,
	}

	def, ok := resolveLine(line, catalog)
	if !ok {
		le.Issue = domain.IssueUnresolvableMatch
		return le
	}
	le.ServiceTypeID = def.ID

	fair, ok := def.FairPrice[region]
	if !ok {
		fair, ok = def.FairPrice[p.DefaultRegion]
	}
	if !ok {
		le.Issue = domain.IssueNoFairPrice
		return le
	}
	le.FairPrice = &fair

	switch {
	case le.Cost > fair.High:
		le.Verdict = domain.VerdictAboveRange
	case le.Cost < fair.Low:
		le.Verdict = domain.VerdictBelowRange
		le.Issue = domain.IssuePossibleUnderScoped
	default:
		le.Verdict = domain.VerdictWithinRange
	}
	return le
}

// resolveLine prefers an explicit service type id over text matching.
func resolveLine(line domain.QuoteLineItem, catalog *Catalog) (domain.ServiceTypeDefinition, bool) {
	if line.ServiceTypeID != "" {
		return catalog.Get(line.ServiceTypeID)
	}
	return catalog.MatchService(line.Description)
}

// AggregateVerdict folds line verdicts into the quote verdict. Any line above
// range makes the whole quote above range.
func AggregateVerdict(lines []domain.LineEvaluation) domain.PriceVerdict {
	if len(lines) == 0 {
		return domain.VerdictUnknown
	}
	counts := lo.CountValuesBy(lines, func(l domain.LineEvaluation) domain.PriceVerdict { return l.Verdict })
	switch {
	case counts[domain.VerdictUnknown] == len(lines):
		return domain.VerdictUnknown
	case counts[domain.VerdictAboveRange] > 0:
		return domain.VerdictAboveRange
	case counts[domain.VerdictWithinRange] == len(lines):
		return domain.VerdictWithinRange
	case counts[domain.VerdictBelowRange] == len(lines):
		return domain.VerdictBelowRange
	default:
		return domain.VerdictMixed
	}
}
