package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reglens/reglens/internal/api"
	"github.com/reglens/reglens/internal/jobs"
	"github.com/reglens/reglens/internal/service"
)

// JobManager starts background ingestion runs and reports their status.
type JobManager interface {
	Start(opts service.IngestionOptions) string
	Get(id string) (*jobs.Job, error)
}

type IngestHandler struct {
	manager  JobManager
	validate *validator.Validate
}

func NewIngestHandler(manager JobManager) *IngestHandler {
	return &IngestHandler{
		manager:  manager,
		validate: validator.New(),
	}
}

type IngestRequest struct {
	MaxDocuments int  `json:"max_documents" validate:"omitempty,min=1"`
	SkipExisting bool `json:"skip_existing"`
	// Embeddings defaults to on; a run without a wired provider stores
	// chunks unembedded regardless.
	EmbeddingsEnabled bool `json:"embeddings_enabled"`
}

type IngestResponse struct {
	JobID string `json:"job_id"`
}

// Start handles POST /ingest. The run happens in the background; the
// response carries the job id to poll.
func (h *IngestHandler) Start(w http.ResponseWriter, r *http.Request) {
	req := IngestRequest{SkipExisting: true, EmbeddingsEnabled: true}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			api.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	id := h.manager.Start(service.IngestionOptions{
		MaxDocuments:      req.MaxDocuments,
		SkipExisting:      req.SkipExisting,
		EmbeddingsEnabled: req.EmbeddingsEnabled,
	})
	api.Success(w, http.StatusAccepted, IngestResponse{JobID: id})
}

// Status handles GET /ingest/{id}.
func (h *IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	job, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, job)
}
