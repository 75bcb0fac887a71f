package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteai/internal/adapter/memory"
	"inviteai/internal/catalog"
	"inviteai/internal/domain"
	"inviteai/internal/generation"
	"inviteai/internal/http/handlers"
	"inviteai/internal/ledger"
	"inviteai/internal/middleware"
	"inviteai/internal/providers/image"
	"inviteai/internal/providers/llm"
	"inviteai/internal/ratelimit"
	"inviteai/internal/storage"
	"inviteai/internal/tasks"
	"inviteai/internal/theme"
	"inviteai/pkg/ndjson"
)

const (
	testSecret = "router-secret"
	richUser   = "user-rich"
	poorUser   = "user-poor"
)

type testServer struct {
	store  *memory.Store
	server *httptest.Server
	held   *heldProvider
}

// failingProvider rejects every unit.
type failingProvider struct{}

func (failingProvider) GenerateImage(context.Context, image.Request) (*image.Output, error) {
	return nil, errors.New("vendor unavailable")
}

// heldProvider blocks every unit until release is closed.
type heldProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	next    image.Provider
}

func (p *heldProvider) GenerateImage(ctx context.Context, req image.Request) (*image.Output, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.next.GenerateImage(ctx, req)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	store.SeedUser(richUser, "rich@example.com", 20)
	store.SeedUser(poorUser, "poor@example.com", 1)

	files, err := storage.NewFileStore(t.TempDir(), "http://cdn.test/static")
	require.NoError(t, err)
	uploads := storage.NewService(files, storage.Options{Logger: log})

	cat := catalog.New()
	l := ledger.New(store.Credits(), log)
	held := &heldProvider{started: make(chan struct{}), release: make(chan struct{}), next: image.NewSyntheticProvider()}
	images := image.NewRegistry().
		Register(domain.ProviderSynthetic, image.NewSyntheticProvider()).
		Register(domain.ProviderQwen, failingProvider{}).
		Register(domain.ProviderGemini, held)
	orch := generation.NewOrchestrator(cat, images, uploads, store.Jobs(), store.Units(), generation.OrchestratorOptions{Parallelism: 2, Logger: log})
	gens := generation.NewService(cat, l, store.Jobs(), store.Units(), orch, nil, generation.Settings{
		DefaultBatchSize:  2,
		MaxBatchSize:      4,
		AllowedImageHosts: []string{"cdn.test"},
	}, log)

	texts := llm.NewRegistry().Register(domain.ProviderOpenAI, theme.NewStaticGenerator())
	pipeline := theme.NewPipeline(cat, texts, l, store.Themes(), nil, log)
	themes := theme.NewService(cat, l, store.Themes(), pipeline, tasks.Inline{}, nil, theme.Settings{}, log)

	app := handlers.NewApp(log, cat, l, gens, themes, func(context.Context) error { return nil })
	router := NewRouter(app, Options{
		JWTSecret:       testSecret,
		Logger:          log,
		Limiter:         ratelimit.New(),
		RateLimitPerMin: 1000,
		StaticDir:       files.BasePath(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{store: store, server: srv, held: held}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any, header ...string) *http.Response {
	t.Helper()
	req := s.newRequest(t, method, path, user, body, header...)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) newRequest(t *testing.T, method, path, user string, body any, header ...string) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := middleware.SignJWT(testSecret, user, "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return req
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func generationBody(batch int) map[string]any {
	return map[string]any{
		"imageUrl":  "https://cdn.test/uploads/couple.jpg",
		"style":     "watercolor",
		"role":      "bride",
		"modelId":   "synthetic",
		"batchSize": batch,
	}
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/v1/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/v1/credits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[map[string]map[string]string](t, resp)
	assert.Equal(t, "unauthorized", body["error"]["code"])
}

func TestModelsFilterByKind(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/v1/models?kind=text", richUser, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Models []domain.ModelDescriptor `json:"models"`
	}](t, resp)
	require.NotEmpty(t, body.Models)
	for _, m := range body.Models {
		assert.Equal(t, domain.ModelKindText, m.Kind)
	}

	resp = s.do(t, http.MethodGet, "/v1/models?kind=video", richUser, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamedGeneration(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/v1/generations?stream=1", richUser, generationBody(3))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ndjson.ContentType, resp.Header.Get("Content-Type"))

	var events []generation.Event
	rdr := ndjson.NewReader(resp.Body)
	for {
		var ev generation.Event
		err := rdr.Next(&ev)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 5)
	assert.Equal(t, generation.EventStatus, events[0].Type)
	seen := map[int]bool{}
	for _, ev := range events[1:4] {
		require.Equal(t, generation.EventImage, ev.Type)
		require.NotNil(t, ev.Index)
		seen[*ev.Index] = true
		assert.True(t, strings.HasPrefix(ev.URL, "http://cdn.test/static/generations/"), ev.URL)
		assert.Equal(t, 3, ev.Total)
	}
	assert.Len(t, seen, 3)
	done := events[4]
	assert.Equal(t, generation.EventDone, done.Type)
	assert.Equal(t, string(domain.JobStatusCompleted), done.Status)
	assert.Len(t, done.GeneratedURLs, 3)
	require.NotNil(t, done.RemainingCredits)
	assert.Equal(t, 17, *done.RemainingCredits)

	// The job is already settled, so completing again moves no credits.
	resp = s.do(t, http.MethodPost, "/v1/generations/"+done.ID+"/complete", richUser, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	complete := decodeBody[map[string]any](t, resp)
	assert.Equal(t, false, complete["settled"])
	assert.EqualValues(t, 17, complete["remainingCredits"])

	// Generated files are served by the static handler.
	key := strings.TrimPrefix(done.GeneratedURLs[0], "http://cdn.test")
	resp = s.do(t, http.MethodGet, key, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestStreamedGenerationAllUnitsFailed(t *testing.T) {
	s := newTestServer(t)
	body := generationBody(2)
	body["modelId"] = "qwen-image-edit"
	resp := s.do(t, http.MethodPost, "/v1/generations?stream=1", richUser, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	last := lines[len(lines)-1]
	assert.Contains(t, last, `"type":"done"`)
	assert.Contains(t, last, `"status":"FAILED"`)
	assert.Contains(t, last, `"generatedUrls":[]`)
	assert.Contains(t, last, `"remainingCredits":20`)

	credits := decodeBody[struct {
		Entries []struct {
			ReferenceType string `json:"referenceType"`
			Delta         int    `json:"delta"`
		} `json:"entries"`
	}](t, s.do(t, http.MethodGet, "/v1/credits", richUser, nil))
	require.NotEmpty(t, credits.Entries)
	assert.Equal(t, string(domain.RefGenerationRefund), credits.Entries[0].ReferenceType)
	assert.Equal(t, 2, credits.Entries[0].Delta)
}

func TestCompleteWhileGeneratingConflicts(t *testing.T) {
	s := newTestServer(t)
	body := generationBody(2)
	body["modelId"] = "gemini-2.5-flash-image"
	req := s.newRequest(t, http.MethodPost, "/v1/generations", richUser, body)

	statuses := make(chan int, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			statuses <- 0
			return
		}
		resp.Body.Close()
		statuses <- resp.StatusCode
	}()
	<-s.held.started

	list := decodeBody[map[string][]map[string]any](t, s.do(t, http.MethodGet, "/v1/generations", richUser, nil))
	require.Len(t, list["items"], 1)
	jobID, _ := list["items"][0]["id"].(string)

	resp := s.do(t, http.MethodPost, "/v1/generations/"+jobID+"/complete", richUser, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errBody := decodeBody[map[string]map[string]string](t, resp)
	assert.Equal(t, "conflict", errBody["error"]["code"])

	close(s.held.release)
	assert.Equal(t, http.StatusOK, <-statuses)

	credits := decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/v1/credits", richUser, nil))
	assert.EqualValues(t, 18, credits["balance"])
}

func TestJSONGenerationAndUnitSelection(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/v1/generations", richUser, generationBody(2))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeBody[struct {
		Job struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"job"`
		GeneratedURLs    []string `json:"generatedUrls"`
		RemainingCredits int      `json:"remainingCredits"`
	}](t, resp)
	assert.Equal(t, "COMPLETED", gen.Job.Status)
	assert.Len(t, gen.GeneratedURLs, 2)
	assert.Equal(t, 18, gen.RemainingCredits)

	resp = s.do(t, http.MethodGet, "/v1/generations/"+gen.Job.ID, richUser, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[struct {
		Units []struct {
			ID            string   `json:"id"`
			GeneratedURLs []string `json:"generatedUrls"`
		} `json:"units"`
	}](t, resp)
	require.Len(t, view.Units, 2)
	unit := view.Units[0]

	resp = s.do(t, http.MethodPatch, "/v1/generations/units/"+unit.ID, richUser, map[string]any{"selectedUrl": "https://elsewhere.example/x.png"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/v1/generations/units/"+unit.ID, richUser, map[string]any{
		"selectedUrl": unit.GeneratedURLs[0],
		"isFavorited": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[map[string]any](t, resp)
	assert.Equal(t, unit.GeneratedURLs[0], updated["selectedUrl"])
	assert.Equal(t, true, updated["isFavorited"])

	resp = s.do(t, http.MethodGet, "/v1/generations/"+gen.Job.ID, poorUser, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/generations", richUser, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[map[string][]map[string]any](t, resp)
	assert.Len(t, list["items"], 1)
}

func TestGenerationErrors(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		user   string
		body   map[string]any
		status int
		code   string
	}{
		{name: "insufficient credits", user: poorUser, body: generationBody(3), status: http.StatusPaymentRequired, code: "insufficient_credits"},
		{name: "host not allowed", user: richUser, body: func() map[string]any {
			b := generationBody(1)
			b["imageUrl"] = "https://evil.example/a.jpg"
			return b
		}(), status: http.StatusBadRequest, code: "bad_request"},
		{name: "unknown model", user: richUser, body: func() map[string]any {
			b := generationBody(1)
			b["modelId"] = "dall-e-9"
			return b
		}(), status: http.StatusInternalServerError, code: "unknown_model"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/v1/generations", tc.user, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			body := decodeBody[map[string]map[string]string](t, resp)
			assert.Equal(t, tc.code, body["error"]["code"])
		})
	}

	resp := s.do(t, http.MethodGet, "/v1/credits", poorUser, nil)
	credits := decodeBody[map[string]any](t, resp)
	assert.EqualValues(t, 1, credits["balance"])
	assert.Empty(t, credits["entries"])
}

func TestThemeEndpoints(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/v1/themes", richUser, map[string]any{
		"prompt":  "rustic garden wedding under the oaks",
		"modelId": "gpt-4o-mini",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "COMPLETED", created["status"])
	assert.Equal(t, "Rustic Garden", created["theme"].(map[string]any)["name"])

	resp = s.do(t, http.MethodPost, "/v1/themes", richUser, map[string]any{
		"prompt":     "modern minimal city hall",
		"modelId":    "gpt-4o-mini",
		"background": true,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	queued := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "QUEUED", queued["status"])

	resp = s.do(t, http.MethodGet, "/v1/themes/"+queued["id"].(string), richUser, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "COMPLETED", decodeBody[map[string]any](t, resp)["status"])

	resp = s.do(t, http.MethodGet, "/v1/themes", richUser, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[map[string][]any](t, resp)["items"], 2)

	resp = s.do(t, http.MethodPost, "/v1/themes", richUser, map[string]any{"modelId": "gpt-4o-mini"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
