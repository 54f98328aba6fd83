package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/reglens/reglens/internal/domain"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) GetDocumentByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) DeleteDocument(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestDocumentHandler_Get(t *testing.T) {
	svc := new(MockDocumentService)
	svc.On("GetDocumentByID", mock.Anything, "doc-1").
		Return(&domain.Document{ID: "doc-1", ExternalID: "ext-1", Title: "Capital Rules"}, nil)

	h := NewDocumentHandler(svc)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil), "id", "doc-1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Capital Rules")
}

func TestDocumentHandler_GetNotFound(t *testing.T) {
	svc := new(MockDocumentService)
	svc.On("GetDocumentByID", mock.Anything, "missing").Return(nil, nil)

	h := NewDocumentHandler(svc)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/documents/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentHandler_Delete(t *testing.T) {
	svc := new(MockDocumentService)
	svc.On("DeleteDocument", mock.Anything, "doc-1").Return(nil)

	h := NewDocumentHandler(svc)
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil), "id", "doc-1")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDocumentHandler_DeleteNotFound(t *testing.T) {
	svc := new(MockDocumentService)
	svc.On("DeleteDocument", mock.Anything, "missing").Return(domain.ErrDocumentNotFound)

	h := NewDocumentHandler(svc)
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/documents/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
