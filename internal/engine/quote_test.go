package engine

import (
	"errors"
	"testing"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cost(v float64) *float64 { return &v }

func TestEvaluateQuote_BrakePadExample(t *testing.T) {
	eval, err := EvaluateQuote([]domain.QuoteLineItem{
		{Description: "brake pad replacement", Quantity: 1, LaborHours: 2, UnitCost: 80},
	}, DefaultCatalog(), QuoteContext{LaborRate: 50}, DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, eval.Lines, 1)
	line := eval.Lines[0]
	assert.Equal(t, "brake-pad-replacement", line.ServiceTypeID)
	assert.Equal(t, 180.0, line.Cost)
	assert.Equal(t, domain.VerdictWithinRange, line.Verdict)
	assert.Equal(t, &domain.PriceRange{Low: 150, High: 250}, line.FairPrice)
	assert.Equal(t, domain.VerdictWithinRange, eval.Verdict)
	assert.Equal(t, 180.0, eval.TotalCost)
	assert.Equal(t, "national", eval.Region)
}

func TestEvaluateQuote_Empty(t *testing.T) {
	eval, err := EvaluateQuote(nil, DefaultCatalog(), QuoteContext{LaborRate: 100}, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictUnknown, eval.Verdict)
	assert.Empty(t, eval.Lines)
	assert.Zero(t, eval.TotalCost)
}

func TestEvaluateQuote_LineVerdicts(t *testing.T) {
	catalog := DefaultCatalog()
	eval, err := EvaluateQuote([]domain.QuoteLineItem{
		{Description: "Full synthetic OIL CHANGE", TotalCost: cost(120)},
		{Description: "rotate tires", TotalCost: cost(10)},
		{Description: "replace flux capacitor", TotalCost: cost(999)},
		{Description: "whatever the shop calls it", ServiceTypeID: "coolant-flush", TotalCost: cost(125)},
	}, catalog, QuoteContext{LaborRate: 90}, DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictAboveRange, eval.Lines[0].Verdict)
	assert.Equal(t, "oil-change", eval.Lines[0].ServiceTypeID)

	assert.Equal(t, domain.VerdictBelowRange, eval.Lines[1].Verdict)
	assert.Equal(t, domain.IssuePossibleUnderScoped, eval.Lines[1].Issue)

	assert.Equal(t, domain.VerdictUnknown, eval.Lines[2].Verdict)
	assert.Equal(t, domain.IssueUnresolvableMatch, eval.Lines[2].Issue)
	assert.Empty(t, eval.Lines[2].ServiceTypeID)

	assert.Equal(t, domain.VerdictWithinRange, eval.Lines[3].Verdict)
	assert.Equal(t, "coolant-flush", eval.Lines[3].ServiceTypeID)

	assert.Equal(t, domain.VerdictAboveRange, eval.Verdict)
	assert.Equal(t, 1254.0, eval.TotalCost)
	assert.Equal(t, 255.0, eval.PricedCost)
}

func TestEvaluateQuote_RegionFallback(t *testing.T) {
	catalog := DefaultCatalog()
	lines := []domain.QuoteLineItem{{Description: "oil change", TotalCost: cost(75)}}

	west, err := EvaluateQuote(lines, catalog, QuoteContext{Region: "West"}, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictWithinRange, west.Verdict)
	assert.Equal(t, "west", west.Region)

	south, err := EvaluateQuote(lines, catalog, QuoteContext{Region: "south"}, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictAboveRange, south.Verdict)
	assert.Equal(t, 65.0, south.Lines[0].FairPrice.High)
}

func TestEvaluateQuote_NoFairPrice(t *testing.T) {
	catalog, err := NewCatalog([]domain.ServiceTypeDefinition{
		{ID: "detailing", Name: "Detailing", Category: domain.CategoryRoutine, FairPrice: map[string]domain.PriceRange{"east": {Low: 10, High: 20}}},
	})
	require.NoError(t, err)

	eval, err := EvaluateQuote([]domain.QuoteLineItem{{Description: "detailing", TotalCost: cost(15)}}, catalog, QuoteContext{}, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, domain.IssueNoFairPrice, eval.Lines[0].Issue)
	assert.Equal(t, domain.VerdictUnknown, eval.Verdict)
}

func TestAggregateVerdict(t *testing.T) {
	lines := func(vs ...domain.PriceVerdict) []domain.LineEvaluation {
		out := make([]domain.LineEvaluation, len(vs))
		for i, v := range vs {
			out[i] = domain.LineEvaluation{Index: i, Verdict: v}
		}
		return out
	}

	assert.Equal(t, domain.VerdictUnknown, AggregateVerdict(nil))
	assert.Equal(t, domain.VerdictUnknown, AggregateVerdict(lines(domain.VerdictUnknown, domain.VerdictUnknown)))
	assert.Equal(t, domain.VerdictWithinRange, AggregateVerdict(lines(domain.VerdictWithinRange, domain.VerdictWithinRange)))
	assert.Equal(t, domain.VerdictBelowRange, AggregateVerdict(lines(domain.VerdictBelowRange)))
	assert.Equal(t, domain.VerdictAboveRange, AggregateVerdict(lines(domain.VerdictBelowRange, domain.VerdictAboveRange)))
	assert.Equal(t, domain.VerdictMixed, AggregateVerdict(lines(domain.VerdictWithinRange, domain.VerdictBelowRange)))
	assert.Equal(t, domain.VerdictMixed, AggregateVerdict(lines(domain.VerdictWithinRange, domain.VerdictUnknown)))
}

func TestEvaluateQuote_InvalidInput(t *testing.T) {
	catalog := DefaultCatalog()
	cases := map[string]struct {
		lines []domain.QuoteLineItem
		qc    QuoteContext
	}{
		"negative quantity":   {[]domain.QuoteLineItem{{Description: "oil change", Quantity: -1}}, QuoteContext{}},
		"negative hours":      {[]domain.QuoteLineItem{{Description: "oil change", LaborHours: -2}}, QuoteContext{}},
		"negative unit cost":  {[]domain.QuoteLineItem{{Description: "oil change", UnitCost: -3}}, QuoteContext{}},
		"negative total cost": {[]domain.QuoteLineItem{{Description: "oil change", TotalCost: cost(-1)}}, QuoteContext{}},
		"negative labor rate": {[]domain.QuoteLineItem{{Description: "oil change"}}, QuoteContext{LaborRate: -50}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := EvaluateQuote(tc.lines, catalog, tc.qc, DefaultPolicy())
			var invalid *domain.ErrInvalidInput
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestLineCost_RoundsToCents(t *testing.T) {
	assert.Equal(t, 33.34, LineCost(domain.QuoteLineItem{Quantity: 3, UnitCost: 11.1133}, 0))
	assert.Equal(t, 99.99, LineCost(domain.QuoteLineItem{TotalCost: cost(99.994), Quantity: 5, UnitCost: 1000}, 50))
}
