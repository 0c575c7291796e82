package orchestrator

import "github.com/ppiankov/clauseguard/internal/model"

// Outcome is the single result slot: nothing, an analysis, or a narration.
// Holding one variant excludes the others.
type Outcome interface {
	outcome()
}

// NoOutcome means no result is held
type NoOutcome struct{}

// AnalysisOutcome holds clause annotations from a standard submission
type AnalysisOutcome struct {
	Result *model.AnalysisResult
}

// NarrationOutcome holds the audio handle from a narrated submission
type NarrationOutcome struct {
	Audio *model.AudioArtifact
}

func (NoOutcome) outcome()        {}
func (AnalysisOutcome) outcome()  {}
func (NarrationOutcome) outcome() {}

// Snapshot is a consistent copy of orchestrator state
type Snapshot struct {
	Input     model.InputSource
	Mode      model.Mode
	Status    model.Status
	Operation Operation // In-flight or last attempted operation
	Outcome   Outcome
	Err       error // Last submission failure, cleared on next submit
}

// Analysis returns the held analysis, or nil
func (s Snapshot) Analysis() *model.AnalysisResult {
	if a, ok := s.Outcome.(AnalysisOutcome); ok {
		return a.Result
	}
	return nil
}

// Audio returns the held audio artifact, or nil
func (s Snapshot) Audio() *model.AudioArtifact {
	if n, ok := s.Outcome.(NarrationOutcome); ok {
		return n.Audio
	}
	return nil
}
