package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/model"
	"github.com/BetterCallFirewall/urlscreen/internal/worker"
	"github.com/BetterCallFirewall/urlscreen/internal/wsfeed"
)

type fakeProcessor struct {
	resp *model.ScreenshotResponse
	err  error
}

func (f *fakeProcessor) Process(ctx context.Context, url string) (*model.ScreenshotResponse, error) {
	return f.resp, f.err
}

func newTestServer(t *testing.T, proc worker.Processor) *Server {
	t.Helper()
	log := zap.NewNop()
	pool := worker.New(log, proc, 2, 4, time.Second)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	hub := wsfeed.NewHub(log)
	go hub.Run()

	return New(log, "127.0.0.1:0", pool, nil, hub, 2*time.Second)
}

func TestHandleScreenshotSuccess(t *testing.T) {
	want := model.NewScreenshotResponse("https://example.com")
	want.Status = "success"
	srv := newTestServer(t, &fakeProcessor{resp: want})

	body, _ := json.Marshal(model.ScreenshotRequest{URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/screenshot", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleScreenshot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.ScreenshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "success", got.Status)
}

func TestHandleScreenshotRejectsInvalidURL(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{})

	body, _ := json.Marshal(model.ScreenshotRequest{URL: "not-a-url"})
	req := httptest.NewRequest(http.MethodPost, "/screenshot", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleScreenshot(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScreenshotMapsProcessorFailure(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{err: assertAnError{}})

	body, _ := json.Marshal(model.ScreenshotRequest{URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/screenshot", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleScreenshot(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthStatusFor(t *testing.T) {
	assert.Equal(t, "healthy", healthStatusFor(1, 2))
	assert.Equal(t, "degraded", healthStatusFor(2, 2))
	assert.Equal(t, "unhealthy", healthStatusFor(0, 0))
	assert.Equal(t, "unhealthy", healthStatusFor(3, 2))
}

type assertAnError struct{}

func (assertAnError) Error() string { return "processing failed" }
