package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipbrief/video-insight/internal/gemini"
	"github.com/clipbrief/video-insight/internal/jobs"
	"github.com/clipbrief/video-insight/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestStatsGetAndIncrement(t *testing.T) {
	db := openTestDB(t)
	h := NewStatsHandler(db)

	app := fiber.New()
	app.Get("/api/stats", h.Get)
	app.Post("/api/stats", h.Increment)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, decodeJSON(t, resp)["count"])

	for want := 1; want <= 2; want++ {
		resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/stats", nil))
		require.NoError(t, err)
		assert.EqualValues(t, want, decodeJSON(t, resp)["count"])
	}
}

func TestSummaryProxySuccessIncrementsCounter(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"总结：好"}]}}]}`))
	}))
	defer provider.Close()

	db := openTestDB(t)
	ai := gemini.NewClient(gemini.Config{APIKey: "sk-k", BaseURL: provider.URL, Model: "m"})
	h := NewSummaryHandler(ai, db)

	app := fiber.New()
	app.Post("/api/summary", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/api/summary", bytes.NewReader([]byte("audio-bytes")))
	req.Header.Set("Content-Type", "audio/mpeg")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "总结：好", decodeJSON(t, resp)["result"])

	count, err := db.UsageCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSummaryProxyMissingConfig(t *testing.T) {
	var calls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer provider.Close()

	db := openTestDB(t)
	ai := gemini.NewClient(gemini.Config{BaseURL: provider.URL, Model: "m"}) // no key
	h := NewSummaryHandler(ai, db)

	app := fiber.New()
	app.Post("/api/summary", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/api/summary", bytes.NewReader([]byte("audio")))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, resp)["error"], "configuration error")
	assert.Zero(t, calls.Load(), "no outbound call on misconfiguration")

	count, err := db.UsageCount()
	require.NoError(t, err)
	assert.Zero(t, count, "counter untouched on failure")
}

func TestSummaryProxyProviderError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer provider.Close()

	db := openTestDB(t)
	ai := gemini.NewClient(gemini.Config{APIKey: "sk-k", BaseURL: provider.URL, Model: "m"})
	h := NewSummaryHandler(ai, db)

	app := fiber.New()
	app.Post("/api/summary", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/api/summary", bytes.NewReader([]byte("audio")))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "quota exceeded", decodeJSON(t, resp)["error"])

	count, err := db.UsageCount()
	require.NoError(t, err)
	assert.Zero(t, count, "counter not incremented on provider failure")
}

func TestSummaryProxyEmptyBody(t *testing.T) {
	db := openTestDB(t)
	h := NewSummaryHandler(gemini.NewClient(gemini.Config{}), db)

	app := fiber.New()
	app.Post("/api/summary", h.Handle)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newAnalyzeApp(t *testing.T) *fiber.App {
	t.Helper()
	runner := jobs.NewRunner(jobs.NewManager(), jobs.NewEventBus(10), nil, nil, nil, nil)
	h := NewAnalyzeHandler(runner, t.TempDir(), 1)

	app := fiber.New()
	app.Post("/api/analyze", h.Handle)
	return app
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	app := newAnalyzeApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NO_FILE", decodeJSON(t, resp)["code"])
}

func TestAnalyzeRejectsBadFormat(t *testing.T) {
	app := newAnalyzeApp(t)

	body, contentType := multipartUpload(t, "file", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_INVALID_FORMAT", decodeJSON(t, resp)["code"])
}

func TestAnalyzeRejectsOversizedFile(t *testing.T) {
	app := newAnalyzeApp(t) // 1 MB limit

	body, contentType := multipartUpload(t, "file", "big.mp4", make([]byte, 2*1024*1024))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_FILE_TOO_LARGE", decodeJSON(t, resp)["code"])
}

func TestJobsCurrentAndReset(t *testing.T) {
	manager := jobs.NewManager()
	h := NewJobsHandler(manager)

	app := fiber.New()
	app.Get("/api/jobs/current", h.Current)
	app.Post("/api/jobs/reset", h.Reset)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/jobs/current", nil))
	require.NoError(t, err)
	assert.Equal(t, "IDLE", decodeJSON(t, resp)["status"])

	require.NoError(t, manager.Start("job-1", "a.mp4"))
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/jobs/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	manager.Fail("boom")
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/jobs/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "IDLE", decodeJSON(t, resp)["status"])
}
