package copilot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

func TestClient_Analyze_RequestBody(t *testing.T) {
	var gotBody string
	var gotPath, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"final_report":"r","risk_assessment":"k","extracted_policies":"p","verification":"v","agent_history":[]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))

	req, err := domain.NewAnalysisRequest("Does this exceed AML thresholds?", domain.TransactionAttributes{
		Amount: domain.Attribute("  "),
	})
	if err != nil {
		t.Fatalf("NewAnalysisRequest() error = %v", err)
	}

	if _, err := c.Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotPath != "/api/compliance/analyze" {
		t.Errorf("path = %q, want /api/compliance/analyze", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	want := `{"query":"Does this exceed AML thresholds?","transaction_data":{}}`
	if gotBody != want {
		t.Errorf("body = %s, want %s", gotBody, want)
	}
}

func TestClient_Analyze_DecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"final_report":       "Line 1\n  Line 2",
			"risk_assessment":    "HIGH",
			"extracted_policies": "Policy A",
			"verification":       "Verified",
			"agent_history":      []string{"parsed query", "retrieved policy", "assessed risk"},
		})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := c.Analyze(context.Background(), domain.AnalysisRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if res.FinalReport != "Line 1\n  Line 2" {
		t.Errorf("FinalReport = %q", res.FinalReport)
	}
	want := []string{"parsed query", "retrieved policy", "assessed risk"}
	if strings.Join(res.AgentHistory, "|") != strings.Join(want, "|") {
		t.Errorf("AgentHistory = %v, want %v", res.AgentHistory, want)
	}
}

func TestClient_Analyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.ErrorKind
		wantDetail string
	}{
		{
			name:       "service detail",
			status:     http.StatusInternalServerError,
			body:       `{"detail":"OpenAI quota exceeded"}`,
			wantKind:   domain.ErrorKindService,
			wantDetail: "OpenAI quota exceeded",
		},
		{
			name:       "validation detail list",
			status:     http.StatusUnprocessableEntity,
			body:       `{"detail":[{"loc":["body","query"],"msg":"field required","type":"value_error.missing"}]}`,
			wantKind:   domain.ErrorKindService,
			wantDetail: "field required",
		},
		{
			name:     "non-json error body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: domain.ErrorKindService,
		},
		{
			name:     "malformed success body",
			status:   http.StatusOK,
			body:     `{"final_report":`,
			wantKind: domain.ErrorKindService,
		},
		{
			name:     "success body missing sections",
			status:   http.StatusOK,
			body:     `{"final_report":"only this"}`,
			wantKind: domain.ErrorKindService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := c.Analyze(context.Background(), domain.AnalysisRequest{Query: "q"})

			var derr *domain.Error
			if !errors.As(err, &derr) {
				t.Fatalf("Analyze() error = %v, want *domain.Error", err)
			}
			if derr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", derr.Kind, tt.wantKind)
			}
			if derr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", derr.Detail, tt.wantDetail)
			}
		})
	}
}

func TestClient_Analyze_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(WithBaseURL(url))
	_, err := c.Analyze(context.Background(), domain.AnalysisRequest{Query: "q"})
	if got := domain.KindOf(err); got != domain.ErrorKindTransport {
		t.Errorf("KindOf() = %q, want transport (err = %v)", got, err)
	}
	if got := domain.UserMessage(err, domain.FallbackAnalysisMessage); got != domain.FallbackAnalysisMessage {
		t.Errorf("UserMessage() = %q, want fallback", got)
	}
}

func TestClient_Analyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, domain.AnalysisRequest{Query: "q"})
	if got := domain.KindOf(err); got != domain.ErrorKindTimeout {
		t.Errorf("KindOf() = %q, want timeout (err = %v)", got, err)
	}
}

func TestClient_UploadDocument(t *testing.T) {
	var gotName, gotType, gotContent, gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for field := range r.MultipartForm.File {
			gotField = field
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName = hdr.Filename
		gotType = hdr.Header.Get("Content-Type")
		gotContent = string(b)
		io.WriteString(w, `{"message":"Document ingested successfully","document_ids":["a","b"],"filename":"server-name.pdf"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	receipt, err := c.UploadDocument(context.Background(), domain.Document{
		Filename:    "aml-policy.pdf",
		ContentType: domain.PDFMediaType,
		Content:     []byte("%PDF-1.7 test"),
	})
	if err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}

	if gotField != "file" {
		t.Errorf("multipart field = %q, want file", gotField)
	}
	if gotName != "aml-policy.pdf" || gotType != domain.PDFMediaType || gotContent != "%PDF-1.7 test" {
		t.Errorf("part = (%q, %q, %q)", gotName, gotType, gotContent)
	}
	if receipt.Filename != "aml-policy.pdf" {
		t.Errorf("receipt filename = %q, want the selected filename", receipt.Filename)
	}
	if len(receipt.DocumentIDs) != 2 {
		t.Errorf("DocumentIDs = %v, want 2 ids", receipt.DocumentIDs)
	}
}

func TestClient_UploadDocument_NonJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	receipt, err := c.UploadDocument(context.Background(), domain.Document{Filename: "a.pdf", ContentType: domain.PDFMediaType})
	if err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}
	if receipt.Filename != "a.pdf" {
		t.Errorf("Filename = %q, want a.pdf", receipt.Filename)
	}
}

func TestClient_UploadDocument_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"PDF has no extractable text"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.UploadDocument(context.Background(), domain.Document{Filename: "scan.pdf", ContentType: domain.PDFMediaType})
	if got := domain.UserMessage(err, domain.FallbackUploadMessage); got != "PDF has no extractable text" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"boom"}`, "boom"},
		{"list detail", `{"detail":[{"msg":"a"},{"msg":"b"}]}`, "a; b"},
		{"missing detail", `{"error":"x"}`, ""},
		{"not json", `oops`, ""},
		{"object detail", `{"detail":{"code":1}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseErrorResponse([]byte(tt.body)); got != tt.want {
				t.Errorf("ParseErrorResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}

	c = NewClient(WithBaseURL(""))
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() with empty option = %q, want default", c.BaseURL())
	}
}
