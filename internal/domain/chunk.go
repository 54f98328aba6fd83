package domain

import "time"

// Chunk is a contiguous, cleaned unit of document text. Ordinal is the
// 1-based position within the parent document after empty-segment
// filtering; (DocumentID, Ordinal) is unique in the store.
type Chunk struct {
	ID              string
	DocumentID      string
	Ordinal         int
	Content         string
	TokenEstimate   int
	Keywords        []string
	StartOffset     int
	EndOffset       int
	Embedding       []float32
	EmbeddingFailed bool
	CreatedAt       time.Time
}

// ValidateChunk checks a chunk before persistence. Embedding length is
// validated against the store dimension by the repository, which knows it.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.DocumentID == "" {
		return NewDomainError(ErrCodeValidation, "chunk document id is required")
	}
	if c.Ordinal < 1 {
		return NewDomainError(ErrCodeValidation, "chunk ordinal must be >= 1")
	}
	if c.Content == "" {
		return NewDomainError(ErrCodeValidation, "chunk content is required")
	}
	return nil
}
