// Package ports defines the interfaces the copilot components depend on.
package ports

import (
	"context"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

// DocumentUploader sends a document to the ingestion endpoint.
// Implementations: HTTP client (default), test doubles.
type DocumentUploader interface {
	UploadDocument(ctx context.Context, doc domain.Document) (*domain.UploadReceipt, error)
}

// ComplianceAnalyzer submits an analysis request to the remote engine.
// Implementations: HTTP client (default), test doubles.
type ComplianceAnalyzer interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error)
}

// DocumentSearcher queries the ingested document index.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]domain.DocumentMatch, error)
}

// HealthChecker reports the analysis service status.
type HealthChecker interface {
	Health(ctx context.Context) (*domain.ServiceHealth, error)
}

// Notifier delivers user-visible notifications.
// Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notification)

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) {
	f(ctx, n)
}
