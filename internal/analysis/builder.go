// Package analysis holds the analysis form state and turns it into a
// validated request.
package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

// Submit button labels.
const (
	LabelIdle     = "Analyze Compliance"
	LabelInFlight = "Analyzing..."
)

// Fields is the raw text of the analysis form. No format validation is
// applied; Amount is free text.
type Fields struct {
	Query           string `json:"query"`
	TransactionType string `json:"transaction_type"`
	Amount          string `json:"amount"`
	Region          string `json:"region"`
	CustomerType    string `json:"customer_type"`
}

// Attributes maps the optional fields to transaction attributes, omitting
// the ones that are blank after trimming.
func (f Fields) Attributes() domain.TransactionAttributes {
	return domain.TransactionAttributes{
		Type:         domain.Attribute(f.TransactionType),
		Amount:       domain.Attribute(f.Amount),
		Region:       domain.Attribute(f.Region),
		CustomerType: domain.Attribute(f.CustomerType),
	}
}

// AnalyzeFunc is the analysis entry point invoked on submit.
type AnalyzeFunc func(ctx context.Context, query string, attrs domain.TransactionAttributes) error

// Builder owns the form fields. It performs no network access; Submit hands
// the built request to the supplied entry point.
type Builder struct {
	analyze  AnalyzeFunc
	inFlight func() bool

	mu     sync.Mutex
	fields Fields
}

// NewBuilder creates a builder. inFlight reports whether an analysis is
// outstanding; nil means never.
func NewBuilder(analyze AnalyzeFunc, inFlight func() bool) *Builder {
	if inFlight == nil {
		inFlight = func() bool { return false }
	}
	return &Builder{analyze: analyze, inFlight: inFlight}
}

// Fields returns the current field values.
func (b *Builder) Fields() Fields {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fields
}

// SetFields replaces all field values.
func (b *Builder) SetFields(f Fields) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fields = f
}

// SetQuery sets the compliance question.
func (b *Builder) SetQuery(v string) {
	b.update(func(f *Fields) { f.Query = v })
}

// SetTransactionType sets the transaction type.
func (b *Builder) SetTransactionType(v string) {
	b.update(func(f *Fields) { f.TransactionType = v })
}

// SetAmount sets the free-text amount.
func (b *Builder) SetAmount(v string) {
	b.update(func(f *Fields) { f.Amount = v })
}

// SetRegion sets the region.
func (b *Builder) SetRegion(v string) {
	b.update(func(f *Fields) { f.Region = v })
}

// SetCustomerType sets the customer type.
func (b *Builder) SetCustomerType(v string) {
	b.update(func(f *Fields) { f.CustomerType = v })
}

func (b *Builder) update(fn func(*Fields)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.fields)
}

// InFlight reports the externally supplied in-flight flag.
func (b *Builder) InFlight() bool {
	return b.inFlight()
}

// CanSubmit reports whether the query is non-blank and no analysis is in flight.
func (b *Builder) CanSubmit() bool {
	return strings.TrimSpace(b.Fields().Query) != "" && !b.inFlight()
}

// SubmitLabel returns the submit button label for the current state.
func (b *Builder) SubmitLabel() string {
	if b.inFlight() {
		return LabelInFlight
	}
	return LabelIdle
}

// Build validates the fields and returns the request that Submit would send.
func (b *Builder) Build() (domain.AnalysisRequest, error) {
	f := b.Fields()
	return domain.NewAnalysisRequest(f.Query, f.Attributes())
}

// Submit builds the request and invokes the analysis entry point. It is a
// no-op returning domain.ErrEmptyQuery or domain.ErrAnalysisInFlight when
// submission is not allowed.
func (b *Builder) Submit(ctx context.Context) error {
	req, err := b.Build()
	if err != nil {
		return err
	}
	if b.inFlight() {
		return domain.ErrAnalysisInFlight
	}
	return b.analyze(ctx, req.Query, req.Attributes)
}
