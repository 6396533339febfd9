// Package copilot is the HTTP client for the compliance analysis service.
package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

const (
	// DefaultBaseURL is where the analysis service listens in development.
	DefaultBaseURL = "http://localhost:8000"

	uploadPath  = "/api/documents/upload"
	analyzePath = "/api/compliance/analyze"
	searchPath  = "/api/documents/search"
	healthPath  = "/health"

	maxErrorBody = 64 * 1024
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client talks to the document-ingestion and compliance-analysis endpoints.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new client. Without WithHTTPClient, requests go
// through an OpenTelemetry-instrumented default transport.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  "compliance-copilot/1.0",
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadDocument sends doc as the multipart field "file".
// Any 2xx answer is a success; the body is decoded on a best-effort basis.
func (c *Client) UploadDocument(ctx context.Context, doc domain.Document) (*domain.UploadReceipt, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(doc.Filename)))
	h.Set("Content-Type", doc.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(doc.Content); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	receipt := &domain.UploadReceipt{Filename: doc.Filename}
	var up UploadResponse
	if json.Unmarshal(respBody, &up) == nil {
		receipt.Message = up.Message
		receipt.DocumentIDs = up.DocumentIDs
	}
	return receipt, nil
}

// Analyze submits a compliance query and decodes the multi-section result.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	body, err := json.Marshal(AnalyzeRequest{
		Query:           req.Query,
		TransactionData: toTransactionData(req.Attributes),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result AnalyzeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.NewError(domain.ErrorKindService, "").
			WithCause(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	out, ok := result.ToDomain()
	if !ok {
		return nil, domain.NewError(domain.ErrorKindService, "").
			WithCause(errors.New("response is missing result sections"))
	}
	return out, nil
}

// SearchDocuments returns the chunks most similar to query.
func (c *Client) SearchDocuments(ctx context.Context, query string, limit int) ([]domain.DocumentMatch, error) {
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("k", strconv.Itoa(limit))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.NewError(domain.ErrorKindService, "").
			WithCause(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	matches := make([]domain.DocumentMatch, 0, len(result.Results))
	for _, r := range result.Results {
		matches = append(matches, r.toDomain())
	}
	return matches, nil
}

// Health retrieves the service status.
func (c *Client) Health(ctx context.Context) (*domain.ServiceHealth, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result HealthResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.NewError(domain.ErrorKindService, "").
			WithCause(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return &domain.ServiceHealth{Status: result.Status}, nil
}

// do sends req and returns the body of a 2xx response. Failures are
// returned as *domain.Error.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(req.Context(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewError(domain.ErrorKindService, ParseErrorResponse(respBody)).
			WithStatusCode(resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(req.Context(), fmt.Errorf("failed to read response: %w", err))
	}
	return respBody, nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewError(domain.ErrorKindTimeout, "").WithCause(err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewError(domain.ErrorKindTimeout, "").WithCause(err)
	}
	return domain.NewError(domain.ErrorKindTransport, "").WithCause(err)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
