package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// EngineMetrics is returned by GET /v1/engine/metrics/snapshot.
type EngineMetrics struct {
	TasksComputed     int64            `json:"tasksComputed"`
	TasksByState      map[string]int64 `json:"tasksByState"`
	RiskByLevel       map[string]int64 `json:"riskByLevel"`
	VisibilityVerdict map[string]int64 `json:"visibilityByVerdict"`
	QuotesByVerdict   map[string]int64 `json:"quotesByVerdict"`
	ValidationErrors  int64            `json:"validationErrors"`
	CacheHitRate      float64          `json:"cacheHitRate"`
	Period            string           `json:"period"`
}

// Dashboard is the aggregated view a vehicle home screen renders.
type Dashboard struct {
	Vehicle    Vehicle           `json:"vehicle"`
	Tier       Tier              `json:"tier"`
	Risk       RiskAssessment    `json:"risk"`
	Tasks      []DashboardTask   `json:"tasks"`
	Counts     map[TaskState]int `json:"counts"`
	ComputedAt string            `json:"computedAt"`
}

// DashboardTask is a task card together with its gate decision. Visible
// cards carry the task, blurred cards only its outline, hidden cards nothing.
type DashboardTask struct {
	ID         string           `json:"id"`
	Visibility Visibility       `json:"visibility"`
	Task       *MaintenanceTask `json:"task,omitempty"`
	Preview    *TaskPreview     `json:"preview,omitempty"`
}

// TaskPreview is the shape of a blurred card.
type TaskPreview struct {
	ServiceName string          `json:"serviceName"`
	Category    ServiceCategory `json:"category"`
}
