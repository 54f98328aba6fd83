package source

import (
	"context"
	"strconv"

	"github.com/reglens/reglens/internal/domain"
)

// MemorySource serves a fixed corpus from memory, paginated. Used by tests
// and the CLI ingest command when fed a local fixture set.
type MemorySource struct {
	docs     []domain.RawDocument
	pageSize int
}

// NewMemorySource creates a source over docs with the given page size.
func NewMemorySource(docs []domain.RawDocument, pageSize int) *MemorySource {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &MemorySource{docs: docs, pageSize: pageSize}
}

// ListDocuments implements DocumentSource. Page tokens are offsets.
func (s *MemorySource) ListDocuments(_ context.Context, pageToken string) ([]domain.RawDocument, string, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid page token", err)
		}
		offset = n
	}

	if offset >= len(s.docs) {
		return nil, "", nil
	}

	end := offset + s.pageSize
	if end > len(s.docs) {
		end = len(s.docs)
	}

	next := ""
	if end < len(s.docs) {
		next = strconv.Itoa(end)
	}
	return s.docs[offset:end], next, nil
}

// GetDocumentByID implements DocumentSource.
func (s *MemorySource) GetDocumentByID(_ context.Context, id string) (*domain.RawDocument, error) {
	for i := range s.docs {
		if s.docs[i].ExternalID == id {
			doc := s.docs[i]
			return &doc, nil
		}
	}
	return nil, nil
}
