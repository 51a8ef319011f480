package domain

import "time"

// ============================================================
// Service catalog
// ============================================================

type ServiceCategory string

const (
	CategoryRoutine   ServiceCategory = "routine"
	CategorySafety    ServiceCategory = "safety"
	CategoryEmergency ServiceCategory = "emergency"
	CategoryDIY       ServiceCategory = "diy"
)

// Interval is the recommended spacing between two services. At least one of
// the two bases must be set for a tracked service type.
type Interval struct {
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
	Months        *int     `json:"months,omitempty"`
}

// HasDistance reports whether a positive distance interval is configured.
func (i Interval) HasDistance() bool { return i.DistanceMiles != nil && *i.DistanceMiles > 0 }

// HasTime reports whether a positive time interval is configured.
func (i Interval) HasTime() bool { return i.Months != nil && *i.Months > 0 }

// PriceRange is a fair-price band in the local currency.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ServiceTypeDefinition is a catalog entry.
type ServiceTypeDefinition struct {
	ID                        string                `json:"id"`
	Name                      string                `json:"name"`
	Category                  ServiceCategory       `json:"category"`
	Interval                  Interval              `json:"interval"`
	BasePriorityWeight        int                   `json:"basePriorityWeight"`
	FairPrice                 map[string]PriceRange `json:"fairPrice,omitempty"` // keyed by region
	Synonyms                  []string              `json:"synonyms,omitempty"`
	SafetyCriticalWhenUnknown bool                  `json:"safetyCriticalWhenUnknown,omitempty"`
}

// ============================================================
// Derived maintenance tasks
// ============================================================

type TaskState string

const (
	StateScheduled TaskState = "scheduled"
	StateDueSoon   TaskState = "due-soon"
	StateOverdue   TaskState = "overdue"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities low(0) < medium(1) < high(2). Unknown values rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	}
	return -1
}

// PriorityFromRank is the inverse of Rank, clamped to [low, high].
func PriorityFromRank(rank int) Priority {
	switch {
	case rank <= 0:
		return PriorityLow
	case rank == 1:
		return PriorityMedium
	default:
		return PriorityHigh
	}
}

type DueBasis string

const (
	DueBasisDistance DueBasis = "distance"
	DueBasisTime     DueBasis = "time"
	DueBasisBoth     DueBasis = "both"
)

// MaintenanceTask is recomputed on demand and never persisted.
type MaintenanceTask struct {
	VehicleID      string          `json:"vehicleId"`
	ServiceTypeID  string          `json:"serviceTypeId"`
	ServiceName    string          `json:"serviceName"`
	Category       ServiceCategory `json:"category"`
	DueBasis       DueBasis        `json:"dueBasis"`
	State          TaskState       `json:"type"`
	Progress       float64         `json:"progress"`
	Priority       Priority        `json:"priority"`
	LastServicedAt *time.Time      `json:"lastServicedAt,omitempty"`
	LastOdometer   *float64        `json:"lastOdometer,omitempty"`
}
