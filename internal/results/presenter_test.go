package results

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

func testResult() domain.AnalysisResult {
	return domain.AnalysisResult{
		FinalReport:       "FINAL REPORT\n\n  1. Enhanced due diligence required.",
		RiskAssessment:    "RISK LEVEL: HIGH\n\tFactors: amount, region",
		ExtractedPolicies: "AMLD5 Art. 18",
		Verification:      "All citations verified.",
		AgentHistory: []string{
			"RetrieverAgent: Retrieved relevant documents",
			"PolicyAgent: Extracted policies",
			"RiskAgent: Assessed risk",
		},
	}
}

func TestPresenter_DefaultsToReport(t *testing.T) {
	p := NewPresenter(testResult())
	if p.Selected() != ViewReport {
		t.Errorf("Selected() = %q, want report", p.Selected())
	}
	if p.Content() != testResult().FinalReport {
		t.Errorf("Content() = %q", p.Content())
	}
}

func TestPresenter_SelectView(t *testing.T) {
	r := testResult()
	tests := []struct {
		id   string
		want string
	}{
		{"report", r.FinalReport},
		{"risk", r.RiskAssessment},
		{"policies", r.ExtractedPolicies},
		{"verification", r.Verification},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p := NewPresenter(r)
			if !p.SelectView(tt.id) {
				t.Fatalf("SelectView(%q) = false", tt.id)
			}
			if got := p.Content(); got != tt.want {
				t.Errorf("Content() = %q, want %q", got, tt.want)
			}
			if got := p.History(); strings.Join(got, "|") != strings.Join(r.AgentHistory, "|") {
				t.Errorf("History() = %v, want full history for every view", got)
			}
		})
	}
}

func TestPresenter_SelectUnknownViewKeepsSelection(t *testing.T) {
	p := NewPresenter(testResult())
	p.SelectView("risk")

	for _, id := range []string{"", "RISK", "summary"} {
		if p.SelectView(id) {
			t.Errorf("SelectView(%q) = true, want false", id)
		}
	}
	if p.Selected() != ViewRisk {
		t.Errorf("Selected() = %q, want risk", p.Selected())
	}
}

func TestPresenter_Tabs(t *testing.T) {
	p := NewPresenter(testResult())
	p.SelectView("policies")

	tabs := p.Tabs()
	wantTitles := []string{"Final Report", "Risk Assessment", "Policies", "Verification"}
	if len(tabs) != len(wantTitles) {
		t.Fatalf("Tabs() returned %d tabs, want %d", len(tabs), len(wantTitles))
	}
	for i, tab := range tabs {
		if tab.Title != wantTitles[i] {
			t.Errorf("Tabs()[%d].Title = %q, want %q", i, tab.Title, wantTitles[i])
		}
		if tab.Active != (tab.View == ViewPolicies) {
			t.Errorf("Tabs()[%d].Active = %v", i, tab.Active)
		}
	}
}

func TestPresenter_HistoryIsCopy(t *testing.T) {
	r := testResult()
	p := NewPresenter(r)
	r.AgentHistory[0] = "mutated input"

	h := p.History()
	if h[0] != "RetrieverAgent: Retrieved relevant documents" {
		t.Errorf("History()[0] = %q, presenter shares caller slice", h[0])
	}
	h[1] = "mutated output"
	if p.History()[1] != "PolicyAgent: Extracted policies" {
		t.Error("History() exposed internal slice")
	}
}

func TestPresenter_WriteText(t *testing.T) {
	p := NewPresenter(testResult())
	p.SelectView("risk")

	var buf bytes.Buffer
	if err := p.WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}

	want := "Agent Execution History\n" +
		"1. RetrieverAgent: Retrieved relevant documents\n" +
		"2. PolicyAgent: Extracted policies\n" +
		"3. RiskAgent: Assessed risk\n" +
		"\nRisk Assessment\n\n" +
		"RISK LEVEL: HIGH\n\tFactors: amount, region\n"
	if buf.String() != want {
		t.Errorf("WriteText() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestPresenter_EmptyHistory(t *testing.T) {
	p := NewPresenter(domain.AnalysisResult{FinalReport: "r", AgentHistory: []string{}})
	if h := p.History(); len(h) != 0 {
		t.Errorf("History() = %v, want empty", h)
	}
}
