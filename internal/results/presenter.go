// Package results presents a settled analysis result as four selectable
// views plus the agent execution trace.
package results

import (
	"fmt"
	"io"
	"sync"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

// View identifies one result section.
type View string

const (
	ViewReport       View = "report"
	ViewRisk         View = "risk"
	ViewPolicies     View = "policies"
	ViewVerification View = "verification"
)

// Views lists the views in display order.
var Views = []View{ViewReport, ViewRisk, ViewPolicies, ViewVerification}

var titles = map[View]string{
	ViewReport:       "Final Report",
	ViewRisk:         "Risk Assessment",
	ViewPolicies:     "Policies",
	ViewVerification: "Verification",
}

// ParseView returns the view named by id.
func ParseView(id string) (View, bool) {
	v := View(id)
	_, ok := titles[v]
	return v, ok
}

// Title returns the display name of v.
func (v View) Title() string {
	return titles[v]
}

// Tab is one entry of the view selector.
type Tab struct {
	View   View   `json:"view"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Presenter holds a result and the currently selected view.
type Presenter struct {
	result domain.AnalysisResult

	mu       sync.Mutex
	selected View
}

// NewPresenter creates a presenter showing the report view.
func NewPresenter(result domain.AnalysisResult) *Presenter {
	return &Presenter{result: result.Clone(), selected: ViewReport}
}

// SelectView switches the visible section. Unknown ids leave the selection
// unchanged and return false.
func (p *Presenter) SelectView(id string) bool {
	v, ok := ParseView(id)
	if !ok {
		return false
	}
	p.mu.Lock()
	p.selected = v
	p.mu.Unlock()
	return true
}

// Selected returns the current view.
func (p *Presenter) Selected() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Content returns the selected section verbatim.
func (p *Presenter) Content() string {
	return p.section(p.Selected())
}

func (p *Presenter) section(v View) string {
	switch v {
	case ViewRisk:
		return p.result.RiskAssessment
	case ViewPolicies:
		return p.result.ExtractedPolicies
	case ViewVerification:
		return p.result.Verification
	default:
		return p.result.FinalReport
	}
}

// History returns the agent history in order, independent of the view.
func (p *Presenter) History() []string {
	out := make([]string, len(p.result.AgentHistory))
	copy(out, p.result.AgentHistory)
	return out
}

// Tabs returns the view selector state.
func (p *Presenter) Tabs() []Tab {
	selected := p.Selected()
	tabs := make([]Tab, 0, len(Views))
	for _, v := range Views {
		tabs = append(tabs, Tab{View: v, Title: v.Title(), Active: v == selected})
	}
	return tabs
}

// WriteText renders the history followed by the selected section as plain
// text. Section text is written unmodified.
func (p *Presenter) WriteText(w io.Writer) error {
	selected := p.Selected()

	if _, err := fmt.Fprintln(w, "Agent Execution History"); err != nil {
		return err
	}
	for i, step := range p.result.AgentHistory {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, step); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\n%s\n\n", selected.Title()); err != nil {
		return err
	}
	if _, err := io.WriteString(w, p.section(selected)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
