// Package source provides corpus document sources for the ingestion
// pipeline.
package source

import (
	"context"

	"github.com/reglens/reglens/internal/domain"
)

// DocumentSource lists and fetches raw corpus documents.
type DocumentSource interface {
	// ListDocuments returns one page of documents starting at pageToken
	// ("" for the first page) and the token of the next page, or "" when
	// the listing is exhausted.
	ListDocuments(ctx context.Context, pageToken string) ([]domain.RawDocument, string, error)

	// GetDocumentByID fetches a single document by external id, returning
	// nil when it does not exist.
	GetDocumentByID(ctx context.Context, id string) (*domain.RawDocument, error)
}
