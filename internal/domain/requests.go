package domain

import "time"

// ============================================================
// Engine API Requests
// ============================================================

// ComputeTaskRequest is the body of POST /v1/engine/tasks/compute.
// Now defaults to the server clock when omitted.
type ComputeTaskRequest struct {
	Vehicle       Vehicle        `json:"vehicle"`
	ServiceTypeID string         `json:"serviceTypeId"`
	LastRecord    *ServiceRecord `json:"lastRecord,omitempty"`
	Now           *time.Time     `json:"now,omitempty"`
}

// RiskRequest is the body of POST /v1/engine/risk/assess.
type RiskRequest struct {
	Profile      *OnboardingProfile `json:"profile,omitempty"`
	OverdueTasks []MaintenanceTask  `json:"overdueTasks"`
}

// VisibilityRequest is the body of POST /v1/engine/visibility/resolve.
type VisibilityRequest struct {
	Tier  *Tier         `json:"tier,omitempty"`
	Items []ContentItem `json:"items"`
}

// VisibilityResponse lists one verdict per requested item, in order.
type VisibilityResponse struct {
	Tier  Tier             `json:"tier"`
	Items []ItemVisibility `json:"items"`
}

// QuoteRequest is one quote to evaluate. LaborRate falls back to the
// configured default when omitted.
type QuoteRequest struct {
	Lines     []QuoteLineItem `json:"lines"`
	LaborRate *float64        `json:"laborRate,omitempty"`
	Region    string          `json:"region,omitempty"`
}

// QuoteBatchRequest is the body of POST /v1/engine/quotes/batch.
type QuoteBatchRequest struct {
	Quotes []QuoteRequest `json:"quotes"`
}

// QuoteBatchResponse keeps evaluations in request order.
type QuoteBatchResponse struct {
	Evaluations []QuoteEvaluation `json:"evaluations"`
}

// ============================================================
// Vehicle API Requests
// ============================================================

// ServiceRecordRequest is the body of POST /v1/vehicles/{vehicleId}/service-records.
type ServiceRecordRequest struct {
	ServiceTypeID string    `json:"serviceTypeId"`
	PerformedAt   time.Time `json:"performedAt"`
	Odometer      float64   `json:"odometer"`
}

// OdometerUpdateRequest is the body of PUT /v1/vehicles/{vehicleId}/odometer.
type OdometerUpdateRequest struct {
	Miles float64 `json:"miles"`
}

// ListResponse wraps list endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}
