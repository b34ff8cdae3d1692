package models

import "time"

// DocumentStatus is the lifecycle state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// FileType is a supported upload format
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls" // routed to the XLSX reader
	FileTypeTXT  FileType = "txt"
	FileTypeMD   FileType = "md"
	FileTypeHTML FileType = "html"
)

// Document is an uploaded file and the state of its ingestion
type Document struct {
	// Identity
	ID       string   `json:"id"` // doc_{uuid}
	Filename string   `json:"filename"`
	FileType FileType `json:"file_type"`

	// Content
	RawText  string   `json:"-"`         // Normalized extracted text
	ChunkIDs []string `json:"chunk_ids"` // Ordered by chunk ordinal

	Status    DocumentStatus `json:"status" badgerhold:"index"`
	Error     string         `json:"error,omitempty"`
	SizeBytes int64          `json:"size_bytes"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CharRange is a half-open [Start, End) range of character (rune) offsets
type CharRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of characters covered by the range
func (r CharRange) Len() int {
	return r.End - r.Start
}

// Chunk is a contiguous, possibly overlapping slice of a document's normalized text
type Chunk struct {
	ID         string    `json:"id"` // hash(document_id, ordinal)
	DocumentID string    `json:"document_id" badgerhold:"index"`
	Ordinal    int       `json:"ordinal"`
	Text       string    `json:"text"`
	Range      CharRange `json:"char_range"`
}

// DocumentStats summarizes the knowledge base
type DocumentStats struct {
	Documents  int            `json:"documents"`
	ByStatus   map[string]int `json:"by_status"`
	Chunks     int            `json:"chunks"`
	Vectors    int            `json:"vectors"`
	Dimension  int            `json:"dimension"`
	EmbedModel string         `json:"embedding_model"`
}

// SubmitResult is returned as soon as an upload has been accepted
type SubmitResult struct {
	DocumentID string         `json:"document_id"`
	Status     DocumentStatus `json:"status"`
}
