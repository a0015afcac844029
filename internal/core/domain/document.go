package domain

import "time"

type DocumentStatus string

const (
	StatusExtracted DocumentStatus = "extracted"
	StatusIndexing  DocumentStatus = "indexing"
	StatusIndexed   DocumentStatus = "indexed"
	StatusFailed    DocumentStatus = "failed"
)

type Document struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	MimeType      string         `json:"mime_type"`
	StoragePath   string         `json:"storage_path"`
	ByteSize      int64          `json:"byte_size"`
	PageCount     int            `json:"page_count"`
	SectionCount  int            `json:"section_count"`
	DocumentType  string         `json:"document_type,omitempty"`
	DocumentDate  string         `json:"document_date,omitempty"`
	ProjectNumber string         `json:"project_number,omitempty"`
	Revision      string         `json:"revision,omitempty"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Section is the atomic retrieval and citation granule of a document:
// a detected heading plus the body text up to the next heading.
type Section struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Ordinal     int    `json:"ordinal"`
	Heading     string `json:"heading,omitempty"`
	Body        string `json:"body"`
	PageStart   int    `json:"page_start"`
	PageEnd     int    `json:"page_end"`
	OffsetStart int    `json:"offset_start"`
	OffsetEnd   int    `json:"offset_end"`
}

// DocumentMetadata holds the construction-document fields sniffed from the
// first page at ingest time.
type DocumentMetadata struct {
	DocumentType  string `json:"document_type"`
	DocumentDate  string `json:"document_date"`
	ProjectNumber string `json:"project_number"`
	Revision      string `json:"revision"`
}
