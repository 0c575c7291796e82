package orchestrator

import "github.com/ppiankov/clauseguard/internal/model"

// Operation is one of the four remote calls a submission can make
type Operation int

const (
	OpNone Operation = iota
	OpAnalyzeFile
	OpAnalyzeText
	OpNarrateFile
	OpNarrateText
)

func (o Operation) String() string {
	switch o {
	case OpAnalyzeFile:
		return "analyze-file"
	case OpAnalyzeText:
		return "analyze-text"
	case OpNarrateFile:
		return "narrate-file"
	case OpNarrateText:
		return "narrate-text"
	default:
		return "none"
	}
}

// Narrated reports whether the operation yields audio
func (o Operation) Narrated() bool {
	return o == OpNarrateFile || o == OpNarrateText
}

// SelectOperation maps input and mode to a remote call.
// A file wins over text when both are present; OpNone means nothing to submit.
func SelectOperation(in model.InputSource, mode model.Mode) Operation {
	switch {
	case in.HasFile() && mode == model.ModeNarrated:
		return OpNarrateFile
	case in.HasFile():
		return OpAnalyzeFile
	case in.HasText() && mode == model.ModeNarrated:
		return OpNarrateText
	case in.HasText():
		return OpAnalyzeText
	default:
		return OpNone
	}
}
