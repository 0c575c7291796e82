package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which remote operation family a submission uses
type Mode int

const (
	ModeStandard Mode = iota // Structured clause annotations
	ModeNarrated             // Synthesized audio explanation ("podcast mode")
)

func (m Mode) String() string {
	if m == ModeNarrated {
		return "narrated"
	}
	return "standard"
}

// ParseMode accepts "standard"/"analysis" and "narrated"/"podcast"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "analysis", "analyze":
		return ModeStandard, nil
	case "narrated", "podcast", "narrate":
		return ModeNarrated, nil
	default:
		return ModeStandard, fmt.Errorf("unknown mode: %s (supported: standard, narrated)", s)
	}
}

// Status drives client affordances such as blocking re-submission
type Status string

const (
	StatusIdle     Status = "idle"
	StatusInFlight Status = "in-flight"
)

// AnalysisResult is the clause set produced by one standard-mode submission
type AnalysisResult struct {
	Clauses    []Clause  `json:"clauses"`
	Source     string    `json:"source"`               // Describe() of the submitted input
	RequestID  string    `json:"request_id,omitempty"` // X-Request-ID sent with the call
	ReceivedAt time.Time `json:"received_at"`
}

// CountByRisk tallies clauses per risk level
func (r *AnalysisResult) CountByRisk() map[RiskLevel]int {
	counts := make(map[RiskLevel]int, len(RiskLevels))
	for _, c := range r.Clauses {
		counts[c.RiskLevel]++
	}
	return counts
}

// AudioArtifact is a handle onto narrated audio held by the audio store.
// The bytes themselves live in the store and are freed on Release.
type AudioArtifact struct {
	Handle      string    `json:"handle"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Filename    string    `json:"filename"`
	Source      string    `json:"source"`
	RequestID   string    `json:"request_id,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}
