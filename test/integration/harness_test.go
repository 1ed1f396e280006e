//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/content"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/postgres"
	"github.com/aevon-lab/completion-aggregator/internal/ingestion"
	"github.com/aevon-lab/completion-aggregator/internal/migrations"
	"github.com/aevon-lab/completion-aggregator/internal/projection"
	"github.com/aevon-lab/completion-aggregator/internal/server"
)

const demoCourse = "course-v1:edX+Demo+2024"

const demoOutline = `
course_id: course-v1:edX+Demo+2024
root: course
blocks:
  - id: course
    type: course
    children: [chapter-1]
  - id: chapter-1
    type: chapter
    children: [seq-1, seq-2]
  - id: seq-1
    type: sequential
    children: [html-1, html-2]
  - id: seq-2
    type: sequential
    children: [problem-1]
  - id: html-1
    type: html
  - id: html-2
    type: html
  - id: problem-1
    type: problem
`

type integrationHarness struct {
	baseURL     string
	client      *http.Client
	db          *sql.DB
	cancel      context.CancelFunc
	serverDone  chan error
	adapter     *postgres.Adapter
	coordinator *aggregation.Coordinator
}

func (h *integrationHarness) close(t *testing.T) {
	t.Helper()

	h.cancel()
	select {
	case <-h.serverDone:
	case <-time.After(5 * time.Second):
		t.Log("server shutdown timed out")
	}

	require.NoError(t, h.adapter.Close())
}

// startPostgres runs a disposable PostgreSQL container and returns its DSN.
// AGGREGATOR_TEST_DSN points the suite at an existing server instead.
func startPostgres(t *testing.T) string {
	t.Helper()

	if dsn := os.Getenv("AGGREGATOR_TEST_DSN"); dsn != "" {
		return dsn
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "aggregator",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://test:test@%s:%s/aggregator?sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/aggregator?sslmode=disable", host, port.Port())
}

func startHarness(t *testing.T, opts ingestion.Options) *integrationHarness {
	t.Helper()

	ctx := context.Background()
	dbOpts := postgres.Options{DSN: startPostgres(t), MaxOpenConns: 10, MaxIdleConns: 10, ConnectRetries: 5}

	db, err := postgres.OpenDB(ctx, dbOpts)
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db, true))
	require.NoError(t, db.Close())

	adapter, err := postgres.NewAdapter(ctx, dbOpts)
	require.NoError(t, err)

	contentDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "demo.yaml"), []byte(demoOutline), 0o644))
	provider, err := content.NewFileSystemProvider(contentDir)
	require.NoError(t, err)

	registry := completion.DefaultRegistry()
	aggregates := postgres.NewAggregateAdapter(adapter.DB(), adapter.Tracer())
	ledger := postgres.NewLedgerAdapter(adapter.DB(), adapter.Tracer())

	updater := aggregation.NewUpdater(provider, adapter, aggregates, registry)
	coordinator := aggregation.NewCoordinator(updater, ledger, aggregation.NoopMetrics(), aggregation.CoordinatorOptions{
		BatchSize:   100,
		WorkerCount: 4,
	})

	ingestionSvc := ingestion.NewService(adapter, ledger, updater, opts)
	projectionSvc := projection.NewService(aggregates, ledger, registry)
	admin := aggregation.NewAdminHandler(coordinator, updater)

	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	httpServer := server.New(addr, adapter, "release")
	ingestionSvc.RegisterRoutes(httpServer.Engine)
	projectionSvc.RegisterRoutes(httpServer.Engine)
	admin.RegisterRoutes(httpServer.Engine)

	runCtx, cancel := context.WithCancel(ctx)
	serverDone := make(chan error, 1)
	go func() { serverDone <- httpServer.Run(runCtx) }()

	baseURL := "http://" + addr
	waitForHealthy(t, baseURL)

	return &integrationHarness{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 5 * time.Second},
		db:          adapter.DB(),
		cancel:      cancel,
		serverDone:  serverDone,
		adapter:     adapter,
		coordinator: coordinator,
	}
}

func waitForHealthy(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server did not become healthy at %s", baseURL)
}

func postJSON(t *testing.T, client *http.Client, endpoint string, payload interface{}) (int, []byte) {
	t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func getJSON(t *testing.T, client *http.Client, endpoint string, out interface{}) int {
	t.Helper()

	resp, err := client.Get(endpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if resp.StatusCode == http.StatusOK && out != nil {
		require.NoError(t, json.Unmarshal(respBody, out), string(respBody))
	}
	return resp.StatusCode
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
