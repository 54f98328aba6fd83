package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reglens/reglens/internal/api"
	"github.com/reglens/reglens/internal/domain"
)

// DocumentService reads and deletes stored documents. Deleting a
// document removes its chunks as well.
type DocumentService interface {
	GetDocumentByID(ctx context.Context, id string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Get handles GET /documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetDocumentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if doc == nil {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}
	api.Success(w, http.StatusOK, doc)
}

// Delete handles DELETE /documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}
