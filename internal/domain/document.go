package domain

import (
	"strings"
	"time"
)

// RawDocument is an immutable document as delivered by a DocumentSource.
type RawDocument struct {
	ExternalID string
	Title      string
	Text       string
	DocType    string
	IssueDate  time.Time
	Topics     []string
}

// Document is the persisted aggregate record for an ingested document.
// Embedding is the representative embedding (first chunk's) and is nil
// for metadata-only documents.
type Document struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	DocType    string    `json:"doc_type,omitempty"`
	IssueDate  time.Time `json:"issue_date,omitempty"`
	Topics     []string  `json:"topics,omitempty"`
	Embedding  []float32 `json:"-"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidateRawDocument checks a source document before it enters the pipeline.
func ValidateRawDocument(d *RawDocument) error {
	if d == nil {
		return ErrMissingRequiredField
	}
	if strings.TrimSpace(d.ExternalID) == "" {
		return NewDomainError(ErrCodeValidation, "raw document external id is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return NewDomainError(ErrCodeValidation, "raw document title is required")
	}
	return nil
}
