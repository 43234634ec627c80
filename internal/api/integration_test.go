//go:build integration

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/recall/internal/cache"
	"github.com/saturnino-fabrica-de-software/recall/internal/database"
	"github.com/saturnino-fabrica-de-software/recall/internal/decision"
	"github.com/saturnino-fabrica-de-software/recall/internal/fetch"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider/synthetic"
	"github.com/saturnino-fabrica-de-software/recall/internal/repository"
	"github.com/saturnino-fabrica-de-software/recall/internal/service"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(runWithDatabase(m))
}

func runWithDatabase(m *testing.M) int {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "recall_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate container: %v\n", err)
		}
	}()

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/recall_test?sslmode=disable", host, port.Port())

	sqlDB, err := database.OpenSQL(dsn)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		return 1
	}
	migrator, err := database.NewMigrator(sqlDB, "recall_test")
	if err != nil {
		fmt.Printf("Failed to create migrator: %v\n", err)
		return 1
	}
	if err := migrator.Up(); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		return 1
	}
	_ = migrator.Close()

	testDB, err = database.NewPool(ctx, database.DefaultPoolConfig(dsn))
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		return 1
	}
	defer testDB.Close()

	return m.Run()
}

// newStack wires the real repositories and services over the test database,
// with the synthetic extractor and samples read from dir.
func newStack(t *testing.T, dir string) *Router {
	t.Helper()

	files, err := fetch.NewFileFetcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })

	extractor := synthetic.New(64, "face")
	classifier, err := decision.NewClassifier(decision.DefaultThresholds(), decision.DefaultCandidateLimit)
	require.NoError(t, err)

	subjects := repository.NewSubjectRepository(testDB)
	sessions := repository.NewSessionRepository(testDB)
	people := repository.NewPersonRepository(testDB)
	samples := repository.NewSampleRepository(testDB)
	events := repository.NewRecognitionEventRepository(testDB)

	embeddings := cache.NewEmbeddingCache(cache.Options{
		Store:  cache.NewPGStore(testDB),
		Logger: testLogger(),
	})

	router := NewRouter(testLogger(), &Dependencies{
		Sessions:    service.NewSessionService(subjects, sessions),
		Enrollment:  service.NewEnrollmentService(subjects, people, samples, embeddings, fetch.NewRouter().Handle(files, "file"), extractor),
		Recognition: service.NewRecognitionService(sessions, people, events, extractor, classifier),
		DB:          testDB,
	})
	router.Setup()
	return router
}

func doJSON(t *testing.T, router *Router, method, path, body string, out any) int {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, router, req, out)
}

func do(t *testing.T, router *Router, req *http.Request, out any) int {
	t.Helper()

	resp, err := router.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func submitSeed(t *testing.T, router *Router, sessionID, seed string, out any) int {
	t.Helper()

	form := url.Values{"seed": {seed}}
	req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID+"/frame", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, router, req, out)
}

type idResponse struct {
	ID string `json:"id"`
}

type eventResponse struct {
	EventID        string `json:"event_id"`
	Status         string `json:"status"`
	Band           string `json:"confidence_band"`
	RecognizedName string `json:"recognized_name"`
	NeedsTieBreak  bool   `json:"needs_tie_break"`
	Candidates     []struct {
		PersonID string  `json:"person_id"`
		Score    float64 `json:"score"`
	} `json:"candidates"`
}

func TestIntegration_Ready(t *testing.T) {
	router := newStack(t, t.TempDir())

	resp, err := router.App().Test(httptest.NewRequest("GET", "/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestIntegration_EnrollAndRecognize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maria.jpg"), []byte("maria-reference"), 0o600))
	router := newStack(t, dir)

	var subject idResponse
	require.Equal(t, 201, doJSON(t, router, "POST", "/v1/subjects", `{"name":"Dona Lúcia"}`, &subject))

	var session idResponse
	require.Equal(t, 201, doJSON(t, router, "POST", "/v1/subjects/"+subject.ID+"/sessions", "", &session))

	// nobody enrolled yet
	var first eventResponse
	require.Equal(t, 200, submitSeed(t, router, session.ID, "maria-reference", &first))
	assert.Equal(t, "unknown", first.Status)
	assert.Equal(t, "low", first.Band)
	assert.Empty(t, first.Candidates)

	var person idResponse
	require.Equal(t, 201, doJSON(t, router, "POST", "/v1/subjects/"+subject.ID+"/people",
		`{"name":"Maria","relationship":"filha"}`, &person))

	var added struct {
		Sample idResponse `json:"sample"`
		Person struct {
			SampleCount int  `json:"sample_count"`
			HasCentroid bool `json:"has_centroid"`
		} `json:"person"`
	}
	require.Equal(t, 201, doJSON(t, router, "POST", "/v1/people/"+person.ID+"/samples",
		`{"source_locator":"maria.jpg"}`, &added))
	assert.Equal(t, 1, added.Person.SampleCount)
	assert.True(t, added.Person.HasCentroid)
	assert.Equal(t, 1, durableEntries(t, added.Sample.ID))

	assert.Equal(t, 409, doJSON(t, router, "POST", "/v1/people/"+person.ID+"/samples",
		`{"source_locator":"maria.jpg"}`, nil))
	assert.Equal(t, 422, doJSON(t, router, "POST", "/v1/people/"+person.ID+"/samples",
		`{"source_locator":"ftp://elsewhere/maria.jpg"}`, nil))

	var second eventResponse
	require.Equal(t, 200, submitSeed(t, router, session.ID, "maria-reference", &second))
	assert.Equal(t, "identified", second.Status)
	assert.Equal(t, "high", second.Band)
	assert.Equal(t, "Maria", second.RecognizedName)
	require.Len(t, second.Candidates, 1)
	assert.InDelta(t, 0.99, second.Candidates[0].Score, 1e-9)

	var stored eventResponse
	require.Equal(t, 200, doJSON(t, router, "GET", "/v1/sessions/"+session.ID+"/result/"+second.EventID, "", &stored))
	assert.Equal(t, second, stored)

	// nothing is pending in this session
	assert.Equal(t, 409, doJSON(t, router, "POST", "/v1/sessions/"+session.ID+"/tiebreak",
		`{"selected_person_id":"`+person.ID+`"}`, nil))

	assert.Equal(t, 204, doJSON(t, router, "DELETE", "/v1/people/"+person.ID, "", nil))
	assert.Equal(t, 404, doJSON(t, router, "GET", "/v1/people/"+person.ID, "", nil))
	assert.Equal(t, 0, durableEntries(t, added.Sample.ID))
}

func TestIntegration_DurableCacheUpsert(t *testing.T) {
	ctx := context.Background()
	store := cache.NewPGStore(testDB)
	key := "embedding:" + uuid.NewString()

	require.NoError(t, store.Set(ctx, key, []byte("first"), time.Hour))
	require.NoError(t, store.Set(ctx, key, []byte("second"), time.Hour))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, store.Delete(ctx, key))
}

// durableEntries counts the durable cache rows stored for a sample.
func durableEntries(t *testing.T, sampleID string) int {
	t.Helper()

	var n int
	err := testDB.QueryRow(context.Background(),
		`SELECT count(*) FROM cache_entries WHERE key = $1`, "embedding:"+sampleID).Scan(&n)
	require.NoError(t, err)
	return n
}
