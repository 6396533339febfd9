package domain

import "time"

// PDFMediaType is the only media type accepted for upload.
const PDFMediaType = "application/pdf"

// Document is a file selected for upload.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// IsPDF reports whether the declared media type is exactly PDFMediaType.
func (d Document) IsPDF() bool {
	return d.ContentType == PDFMediaType
}

// UploadReceipt is what the ingestion endpoint acknowledged.
type UploadReceipt struct {
	Message     string   `json:"message,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	Filename    string   `json:"filename,omitempty"`
}

// UploadedFile records one successful upload in the current session.
type UploadedFile struct {
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DocumentMatch is one chunk returned by a document search.
type DocumentMatch struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	// Source is the originating filename, when the metadata carries one.
	Source string `json:"source,omitempty"`
}

// ServiceHealth is the analysis service's self-reported status.
type ServiceHealth struct {
	Status string `json:"status"`
}

// Healthy reports whether the service reported itself healthy.
func (h ServiceHealth) Healthy() bool {
	return h.Status == "healthy"
}
