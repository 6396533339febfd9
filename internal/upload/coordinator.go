// Package upload coordinates document uploads for a single session.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/notify"
)

// Snapshot is a point-in-time copy of the coordinator state.
type Snapshot struct {
	Uploading bool                  `json:"uploading"`
	Files     []domain.UploadedFile `json:"files"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for upload diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp uploaded files.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator accepts file selections, uploads one at a time and keeps the
// list of files uploaded during the session.
type Coordinator struct {
	uploader ports.DocumentUploader
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	uploading bool
	files     []domain.UploadedFile
}

// NewCoordinator creates a coordinator. A nil notifier discards notifications.
func NewCoordinator(uploader ports.DocumentUploader, notifier ports.Notifier, opts ...Option) *Coordinator {
	if notifier == nil {
		notifier = notify.Discard
	}
	c := &Coordinator{
		uploader: uploader,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectFile validates doc and uploads it. It blocks until the upload
// settles. Non-PDF selections return domain.ErrUnsupportedType and a
// selection made while another upload is running returns
// domain.ErrUploadInProgress; neither reaches the network.
func (c *Coordinator) SelectFile(ctx context.Context, doc domain.Document) error {
	if !doc.IsPDF() {
		c.notifier.Notify(ctx, domain.Failure(domain.ErrUnsupportedType.Detail))
		return domain.ErrUnsupportedType
	}

	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return domain.ErrUploadInProgress
	}
	c.uploading = true
	c.mu.Unlock()

	_, err := c.uploader.UploadDocument(ctx, doc)

	c.mu.Lock()
	c.uploading = false
	if err == nil {
		c.files = append(c.files, domain.UploadedFile{
			Filename:   doc.Filename,
			UploadedAt: c.now(),
		})
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("document upload failed",
			slog.String("filename", doc.Filename),
			slog.String("error", err.Error()),
		)
		c.notifier.Notify(ctx, domain.Failure(domain.UserMessageWithTimeout(err, domain.UploadTimeoutMessage, domain.FallbackUploadMessage)))
		return fmt.Errorf("upload %q: %w", doc.Filename, err)
	}

	c.logger.Info("document uploaded",
		slog.String("filename", doc.Filename),
		slog.Int("size", len(doc.Content)),
	)
	c.notifier.Notify(ctx, domain.Success(fmt.Sprintf(`Document "%s" uploaded successfully!`, doc.Filename)))
	return nil
}

// Uploading reports whether an upload is in flight.
func (c *Coordinator) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Files returns a copy of the uploaded files in completion order.
func (c *Coordinator) Files() []domain.UploadedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filesLocked()
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Uploading: c.uploading, Files: c.filesLocked()}
}

func (c *Coordinator) filesLocked() []domain.UploadedFile {
	out := make([]domain.UploadedFile, len(c.files))
	copy(out, c.files)
	return out
}
