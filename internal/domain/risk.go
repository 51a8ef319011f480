package domain

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Rank orders risk levels low(0) < moderate(1) < high(2).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	}
	return -1
}

// RiskFromRank clamps rank into [low, high].
func RiskFromRank(rank int) RiskLevel {
	switch {
	case rank <= 0:
		return RiskLow
	case rank == 1:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// RiskAssessment is always recomputable from the profile and the overdue set.
type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Reasons []string  `json:"reasons,omitempty"`
}
