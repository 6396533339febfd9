package copilot

import (
	"encoding/json"
	"strings"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

// AnalyzeRequest is the body of POST /api/compliance/analyze.
type AnalyzeRequest struct {
	Query           string          `json:"query"`
	TransactionData TransactionData `json:"transaction_data"`
}

// TransactionData carries the optional transaction attributes.
// Absent attributes are omitted, never sent as empty strings.
type TransactionData struct {
	Type         *string `json:"type,omitempty"`
	Amount       *string `json:"amount,omitempty"`
	Region       *string `json:"region,omitempty"`
	CustomerType *string `json:"customer_type,omitempty"`
}

// AnalyzeResponse is the success body of POST /api/compliance/analyze.
type AnalyzeResponse struct {
	FinalReport       *string  `json:"final_report"`
	RiskAssessment    *string  `json:"risk_assessment"`
	ExtractedPolicies *string  `json:"extracted_policies"`
	Verification      *string  `json:"verification"`
	AgentHistory      []string `json:"agent_history"`
}

// UploadResponse is the success body of POST /api/documents/upload.
type UploadResponse struct {
	Message     string   `json:"message"`
	DocumentIDs []string `json:"document_ids"`
	Filename    string   `json:"filename"`
}

// SearchResponse is the body of GET /api/documents/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult is one matching chunk.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the failure body returned by the service.
// Detail is a string for handled errors and a list of field errors for
// request validation failures.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldError struct {
	Msg string `json:"msg"`
}

// ParseErrorResponse extracts the detail message from an error body.
// It returns "" when the body carries no usable detail.
func ParseErrorResponse(data []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil || len(errResp.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(errResp.Detail, &detail); err == nil {
		return strings.TrimSpace(detail)
	}

	var fields []fieldError
	if err := json.Unmarshal(errResp.Detail, &fields); err == nil {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			if f.Msg != "" {
				msgs = append(msgs, f.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

func toTransactionData(attrs domain.TransactionAttributes) TransactionData {
	attrs = attrs.Normalize()
	return TransactionData{
		Type:         attrs.Type,
		Amount:       attrs.Amount,
		Region:       attrs.Region,
		CustomerType: attrs.CustomerType,
	}
}

// ToDomain converts the response, rejecting bodies that lack any section.
func (r *AnalyzeResponse) ToDomain() (*domain.AnalysisResult, bool) {
	if r.FinalReport == nil || r.RiskAssessment == nil || r.ExtractedPolicies == nil || r.Verification == nil || r.AgentHistory == nil {
		return nil, false
	}
	history := make([]string, len(r.AgentHistory))
	copy(history, r.AgentHistory)
	return &domain.AnalysisResult{
		FinalReport:       *r.FinalReport,
		RiskAssessment:    *r.RiskAssessment,
		ExtractedPolicies: *r.ExtractedPolicies,
		Verification:      *r.Verification,
		AgentHistory:      history,
	}, true
}

func (r SearchResult) toDomain() domain.DocumentMatch {
	m := domain.DocumentMatch{Content: r.Content, Metadata: r.Metadata}
	if name, ok := r.Metadata["filename"].(string); ok {
		m.Source = name
	}
	return m
}
