package domain

import "time"

// Event subjects.
const (
	SubjectTaskOverdue    = "maintenance.task.overdue"
	SubjectQuoteEvaluated = "quote.evaluated"
)

// TaskOverdueEvent drives service reminders.
type TaskOverdueEvent struct {
	VehicleID     string    `json:"vehicleId"`
	ServiceTypeID string    `json:"serviceTypeId"`
	ServiceName   string    `json:"serviceName"`
	Priority      Priority  `json:"priority"`
	Progress      float64   `json:"progress"`
	DetectedAt    time.Time `json:"detectedAt"`
}

// QuoteEvaluatedEvent summarises one evaluated quote.
type QuoteEvaluatedEvent struct {
	Verdict     PriceVerdict `json:"verdict"`
	TotalCost   float64      `json:"totalCost"`
	Lines       int          `json:"lines"`
	Unmatched   int          `json:"unmatched"`
	Region      string       `json:"region"`
	EvaluatedAt time.Time    `json:"evaluatedAt"`
}
