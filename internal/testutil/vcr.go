package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// NewVCRRecorder creates a new VCR recorder for testdata/fixtures/<cassetteName>.
// Set VCR_MODE=record to record against a live analysis service.
func NewVCRRecorder(t *testing.T, cassetteName string) (*recorder.Recorder, func()) {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	return newRecorder(t, filepath.Join("testdata", "fixtures", cassetteName), mode)
}

// Exchange is one canned request/response pair.
type Exchange struct {
	Method string
	URL    string
	Status int
	Body   string
}

// NewReplayRecorder writes exchanges to a cassette in a temporary directory
// and returns a recorder replaying it.
func NewReplayRecorder(t *testing.T, exchanges ...Exchange) (*recorder.Recorder, func()) {
	t.Helper()

	name := filepath.Join(t.TempDir(), "session")
	c := cassette.New(name)
	for _, ex := range exchanges {
		c.AddInteraction(&cassette.Interaction{
			Request: cassette.Request{
				Method: ex.Method,
				URL:    ex.URL,
			},
			Response: cassette.Response{
				Body:    ex.Body,
				Headers: http.Header{"Content-Type": []string{"application/json"}},
				Status:  http.StatusText(ex.Status),
				Code:    ex.Status,
			},
		})
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Failed to save cassette: %v", err)
	}

	return newRecorder(t, name, recorder.ModeReplaying)
}

func newRecorder(t *testing.T, cassettePath string, mode recorder.Mode) (*recorder.Recorder, func()) {
	t.Helper()

	r, err := recorder.NewAsMode(cassettePath, mode, nil)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Don't match on request body; multipart boundaries are random
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// VCRHTTPClient returns an HTTP client configured to use the VCR recorder
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
