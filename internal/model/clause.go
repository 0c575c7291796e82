package model

import "strings"

// Clause is one extracted unit of document text annotated with a risk level
type Clause struct {
	ID          string    `json:"id"`                    // Server-assigned id, or 1-based position
	Text        string    `json:"text"`                  // Source sentence or paragraph
	RiskLevel   RiskLevel `json:"risk_level"`            // high, medium, low
	Explanation string    `json:"explanation,omitempty"` // Human-readable rationale
}

// RiskLevel categorizes how harmful a clause is for the reader
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// RiskLevels lists the closed set in descending severity
var RiskLevels = []RiskLevel{RiskHigh, RiskMedium, RiskLow}

// ParseRiskLevel normalizes a server-provided category.
// The second return is false when the value is outside the closed set.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	switch level {
	case RiskHigh, RiskMedium, RiskLow:
		return level, true
	default:
		return level, false
	}
}

// Rank orders levels for sorting (high first)
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	case RiskLow:
		return 2
	default:
		return 3
	}
}

func (r RiskLevel) String() string {
	return string(r)
}
