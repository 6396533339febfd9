// Package copilot provides the public API for embedding the compliance
// analysis client. This is the stable API for external consumers.
package copilot

import (
	"github.com/tjfontaine/compliance-copilot/internal/api/copilot"
	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/orchestrator"
)

// Client talks to the compliance analysis service.
// See internal/api/copilot.Client for full documentation.
type Client = copilot.Client

// ClientOption configures a Client.
type ClientOption = copilot.ClientOption

// NewClient creates a new client.
// Example:
//
//	c := copilot.NewClient(
//	    copilot.WithBaseURL("http://compliance.internal:8000"),
//	)
//	res, err := c.Analyze(ctx, req)
var NewClient = copilot.NewClient

// Client options
var (
	WithBaseURL    = copilot.WithBaseURL
	WithHTTPClient = copilot.WithHTTPClient
	WithUserAgent  = copilot.WithUserAgent
)

// Orchestrator runs analyses one at a time and tracks their lifecycle.
type Orchestrator = orchestrator.Orchestrator

// NewOrchestrator wraps an analyzer such as a Client.
var NewOrchestrator = orchestrator.New

// Orchestrator options
var (
	WithNotifier       = orchestrator.WithNotifier
	WithJournal        = orchestrator.WithJournal
	WithTimeout        = orchestrator.WithTimeout
	WithLogger         = orchestrator.WithLogger
	WithSessionID      = orchestrator.WithSessionID
	WithTracerProvider = orchestrator.WithTracerProvider
)

// Request and result types
type (
	Document              = domain.Document
	AnalysisRequest       = domain.AnalysisRequest
	AnalysisResult        = domain.AnalysisResult
	TransactionAttributes = domain.TransactionAttributes
	DocumentMatch         = domain.DocumentMatch
	Lifecycle             = domain.Lifecycle
	Error                 = domain.Error
)

var (
	// NewAnalysisRequest validates a query and normalizes its attributes.
	NewAnalysisRequest = domain.NewAnalysisRequest
	// Attribute returns a trimmed attribute value, or nil when blank.
	Attribute = domain.Attribute
	// UserMessage picks the message to show for an error.
	UserMessage = domain.UserMessage
)
