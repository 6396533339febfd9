package domain

import (
	"strings"
)

// TransactionAttributes describes the transaction accompanying a query.
// A nil field is absent and is omitted from the wire payload.
type TransactionAttributes struct {
	Type         *string `json:"type,omitempty"`
	Amount       *string `json:"amount,omitempty"`
	Region       *string `json:"region,omitempty"`
	CustomerType *string `json:"customer_type,omitempty"`
}

// Attribute returns a pointer to the trimmed value, or nil when the trimmed
// value is empty.
func Attribute(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

// Normalize returns a copy with blank fields mapped to absent.
func (a TransactionAttributes) Normalize() TransactionAttributes {
	return TransactionAttributes{
		Type:         normalizeAttr(a.Type),
		Amount:       normalizeAttr(a.Amount),
		Region:       normalizeAttr(a.Region),
		CustomerType: normalizeAttr(a.CustomerType),
	}
}

// IsEmpty reports whether every attribute is absent.
func (a TransactionAttributes) IsEmpty() bool {
	return a.Type == nil && a.Amount == nil && a.Region == nil && a.CustomerType == nil
}

func normalizeAttr(p *string) *string {
	if p == nil {
		return nil
	}
	return Attribute(*p)
}

// AnalysisRequest is a validated compliance question plus its transaction.
type AnalysisRequest struct {
	Query      string                `json:"query"`
	Attributes TransactionAttributes `json:"transaction_data"`
}

// NewAnalysisRequest validates the query and normalizes the attributes.
// A query that is empty after trimming yields ErrEmptyQuery.
func NewAnalysisRequest(query string, attrs TransactionAttributes) (AnalysisRequest, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return AnalysisRequest{}, ErrEmptyQuery
	}
	return AnalysisRequest{
		Query:      q,
		Attributes: attrs.Normalize(),
	}, nil
}

// AnalysisResult is the multi-section output of the analysis service.
// The text blocks are opaque; AgentHistory order is significant.
type AnalysisResult struct {
	FinalReport       string   `json:"final_report"`
	RiskAssessment    string   `json:"risk_assessment"`
	ExtractedPolicies string   `json:"extracted_policies"`
	Verification      string   `json:"verification"`
	AgentHistory      []string `json:"agent_history"`
}

// Clone returns a deep copy of the result.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	if r.AgentHistory != nil {
		out.AgentHistory = make([]string, len(r.AgentHistory))
		copy(out.AgentHistory, r.AgentHistory)
	}
	return out
}
