package domain

// ============================================================
// Repair quotes
// ============================================================

// QuoteLineItem is one user-entered line of a shop quote.
type QuoteLineItem struct {
	Description   string   `json:"description"`
	Quantity      int      `json:"quantity"`
	LaborHours    float64  `json:"laborHours"`
	ServiceTypeID string   `json:"serviceTypeId,omitempty"`
	UnitCost      float64  `json:"unitCost"`
	TotalCost     *float64 `json:"totalCost,omitempty"` // overrides quantity*unitCost+labor when quoted directly
}

type PriceVerdict string

const (
	VerdictWithinRange PriceVerdict = "within-range"
	VerdictAboveRange  PriceVerdict = "above-range"
	VerdictBelowRange  PriceVerdict = "below-range"
	VerdictMixed       PriceVerdict = "mixed"
	VerdictUnknown     PriceVerdict = "unknown"
)

// Line issues.
const (
	IssueUnresolvableMatch   = "unresolvable-match"
	IssueNoFairPrice         = "no-fair-price"
	IssuePossibleUnderScoped = "possible-under-scoping"
)

// LineEvaluation is the verdict for one quote line.
type LineEvaluation struct {
	Index         int          `json:"index"`
	Description   string       `json:"description"`
	ServiceTypeID string       `json:"serviceTypeId,omitempty"`
	Cost          float64      `json:"cost"`
	FairPrice     *PriceRange  `json:"fairPrice,omitempty"`
	Verdict       PriceVerdict `json:"verdict"`
	Issue         string       `json:"issue,omitempty"`
}

// QuoteEvaluation is the full result of checking a quote.
type QuoteEvaluation struct {
	Lines      []LineEvaluation `json:"lines"`
	Verdict    PriceVerdict     `json:"verdict"`
	TotalCost  float64          `json:"totalCost"`
	PricedCost float64          `json:"pricedCost"`
	Region     string           `json:"region"`
	LaborRate  float64          `json:"laborRate"`
}
