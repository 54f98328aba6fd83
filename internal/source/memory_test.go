package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/reglens/reglens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDocs(n int) []domain.RawDocument {
	docs := make([]domain.RawDocument, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, domain.RawDocument{
			ExternalID: fmt.Sprintf("doc-%d", i),
			Title:      fmt.Sprintf("Document %d", i),
			Text:       "body",
		})
	}
	return docs
}

func TestMemorySource_Pagination(t *testing.T) {
	src := NewMemorySource(fixtureDocs(5), 2)
	ctx := context.Background()

	var seen []string
	token := ""
	pages := 0
	for {
		docs, next, err := src.ListDocuments(ctx, token)
		require.NoError(t, err)
		pages++
		for _, d := range docs {
			seen = append(seen, d.ExternalID)
		}
		if next == "" {
			break
		}
		token = next
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"doc-0", "doc-1", "doc-2", "doc-3", "doc-4"}, seen)
}

func TestMemorySource_GetDocumentByID(t *testing.T) {
	src := NewMemorySource(fixtureDocs(3), 10)
	ctx := context.Background()

	doc, err := src.GetDocumentByID(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Document 1", doc.Title)

	missing, err := src.GetDocumentByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemorySource_BadToken(t *testing.T) {
	src := NewMemorySource(fixtureDocs(1), 10)

	_, _, err := src.ListDocuments(context.Background(), "not-a-number")

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}
