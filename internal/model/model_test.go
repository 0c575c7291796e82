package model

import "testing"

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  RiskLevel
		known bool
	}{
		{"HIGH", RiskHigh, true},
		{" Medium ", RiskMedium, true},
		{"low", RiskLow, true},
		{"Critical", RiskLevel("critical"), false},
		{"", RiskLevel(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, known := ParseRiskLevel(tt.in)
			if got != tt.want || known != tt.known {
				t.Errorf("ParseRiskLevel(%q) = (%q, %v), want (%q, %v)", tt.in, got, known, tt.want, tt.known)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"standard": ModeStandard,
		"analysis": ModeStandard,
		"Podcast":  ModeNarrated,
		"narrated": ModeNarrated,
	} {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseMode("video"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestInputSource_Empty(t *testing.T) {
	if !(InputSource{}).Empty() {
		t.Error("Expected zero InputSource to be empty")
	}
	if !(InputSource{Text: "   \n\t"}).Empty() {
		t.Error("Expected whitespace-only text to count as empty")
	}
	if (InputSource{Text: "terms"}).Empty() {
		t.Error("Expected text input to be non-empty")
	}
	src := InputSource{File: &FileRef{Name: "tos.pdf"}, Text: "terms"}
	if src.Describe() != "file:tos.pdf" {
		t.Errorf("Expected file to take precedence in Describe, got %s", src.Describe())
	}
}

func TestAnalysisResult_CountByRisk(t *testing.T) {
	r := &AnalysisResult{Clauses: []Clause{
		{RiskLevel: RiskHigh}, {RiskLevel: RiskHigh}, {RiskLevel: RiskLow},
	}}
	counts := r.CountByRisk()
	if counts[RiskHigh] != 2 || counts[RiskLow] != 1 || counts[RiskMedium] != 0 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
