//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/api/handlers"
	"github.com/reglens/reglens/internal/chunker"
	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/jobs"
	"github.com/reglens/reglens/internal/repository"
	"github.com/reglens/reglens/internal/server"
	"github.com/reglens/reglens/internal/service"
	"github.com/reglens/reglens/internal/source"
	"github.com/reglens/reglens/internal/testutil"
)

const (
	testAPIKey   = "e2e-service-key"
	testStoreDim = 1536
)

// TestEnv holds the containers, store, and running server shared by an
// end-to-end test.
type TestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Store        *repository.Store
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// corpusFixture is the in-memory document set ingested by the tests. No
// embedding provider is configured, so retrieval exercises the keyword
// path end to end.
func corpusFixture() []domain.RawDocument {
	return []domain.RawDocument{
		{
			ExternalID: "eba-gl-2024-01",
			Title:      "Guidelines on Capital Buffers",
			DocType:    "guideline",
			Topics:     []string{"capital"},
			Text: "Institutions shall maintain a countercyclical capital buffer.\n" +
				"--- Page 2 ---\n" +
				"The buffer rate is set quarterly by the designated authority.\n" +
				"--- Page 3 ---\n" +
				"Breaches of the combined buffer requirement restrict distributions.",
		},
		{
			ExternalID: "eba-gl-2024-02",
			Title:      "Guidelines on Liquidity Reporting",
			DocType:    "guideline",
			Topics:     []string{"liquidity", "reporting"},
			Text: "Institutions report their liquidity coverage ratio monthly.\n" +
				"--- Page 2 ---\n" +
				"The reporting deadline is the fifteenth calendar day.",
		},
	}
}

// SetupEnv starts a pgvector container, migrates it, and serves the API
// over a real TCP port with the fixture corpus as the ingestion source.
func SetupEnv(t *testing.T) *TestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	store := repository.NewStore(pool, testStoreDim)
	serverURL, serverCloser := startServer(t, pool, store, port)

	return &TestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		Store:        store,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources.
func (e *TestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
}

// Ingest starts an ingestion run over the API and waits for the job to
// finish, failing the test on a non-completed terminal state.
func (e *TestEnv) Ingest() {
	resp, err := e.Post("/ingest", map[string]any{}, testAPIKey)
	if err != nil {
		e.T.Fatalf("failed to start ingestion: %v", err)
	}

	var started struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(resp.Data, &started); err != nil {
		e.T.Fatalf("failed to parse ingest response: %v", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		statusResp, err := e.Get("/ingest/"+started.JobID, testAPIKey)
		if err != nil {
			e.T.Fatalf("failed to fetch job status: %v", err)
		}

		var job struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(statusResp.Data, &job); err != nil {
			e.T.Fatalf("failed to parse job status: %v", err)
		}

		switch job.Status {
		case "completed":
			return
		case "failed":
			e.T.Fatalf("ingestion job failed: %s", job.Error)
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatal("ingestion job did not finish in time")
}

// APIResponse is the standard response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func (e *TestEnv) Get(path, apiKey string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, apiKey)
}

func (e *TestEnv) Post(path string, body interface{}, apiKey string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, apiKey)
}

func (e *TestEnv) Delete(path, apiKey string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, apiKey)
}

func (e *TestEnv) doRequest(method, path string, body interface{}, apiKey string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the full service graph against the test database and
// the in-memory corpus, with no embedding provider.
func startServer(t *testing.T, pool *pgxpool.Pool, store *repository.Store, port int) (string, func()) {
	logger := zap.NewNop()

	src := source.NewMemorySource(corpusFixture(), 10)
	pipeline := service.NewIngestionPipelineWithTx(
		src, store, repository.NewTxRunner(pool, testStoreDim),
		chunker.New(), nil, nil, 2, logger)

	engine := service.NewRetrievalEngine(store, service.RetrievalConfig{
		SimilarityThreshold: 0.5,
	}, logger)

	orchestrator := service.NewQueryOrchestrator(engine, nil, nil, service.OrchestratorConfig{
		DefaultStrategy: domain.StrategyKeyword,
	}, logger)

	manager := jobs.NewManager(pipeline, logger)

	router := server.NewRouter(server.RouterConfig{
		APIKey:          testAPIKey,
		Logger:          logger,
		SearchHandler:   handlers.NewSearchHandler(orchestrator),
		IngestHandler:   handlers.NewIngestHandler(manager),
		DocumentHandler: handlers.NewDocumentHandler(store),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: router,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		t.Fatalf("failed to listen on %s: %v", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.Errorf("server failed: %v", err)
		}
	}()

	closer := func() {
		manager.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	return fmt.Sprintf("http://127.0.0.1:%d", port), closer
}

func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
