package generatemodel

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerateRouter(ctrl *Controller) *mux.Router {
	r := mux.NewRouter()
	NewHandler(ctrl).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router *mux.Router, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeGenerateResponse(t *testing.T, rec *httptest.ResponseRecorder) GenerateResponse {
	t.Helper()
	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandleGenerateInvalidBody(t *testing.T) {
	router := newGenerateRouter(newTestController(t, &mockClient{}, nil, nil))

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "Invalid request body", decodeGenerateResponse(t, rec).Error)
}

func TestHandleGenerateUnknownMethod(t *testing.T) {
	router := newGenerateRouter(newTestController(t, &mockClient{}, nil, nil))

	rec := postJSON(t, router, "/api/generate", GenerateRequest{GenerationMethod: "video"})
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, decodeGenerateResponse(t, rec).Error, "generationMethod")
}

func TestHandleGenerateMissingPrompt(t *testing.T) {
	router := newGenerateRouter(newTestController(t, &mockClient{}, nil, nil))

	rec := postJSON(t, router, "/api/generate", GenerateRequest{})
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, decodeGenerateResponse(t, rec).Error, "prompt is required")
}

func TestHandleGenerateMissingImage(t *testing.T) {
	router := newGenerateRouter(newTestController(t, &mockClient{}, nil, nil))

	rec := postJSON(t, router, "/api/generate", GenerateRequest{GenerationMethod: "image"})
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, decodeGenerateResponse(t, rec).Error, "imageBase64 is required")
}

func TestHandleGenerateInvalidImageData(t *testing.T) {
	router := newGenerateRouter(newTestController(t, &mockClient{}, nil, nil))

	rec := postJSON(t, router, "/api/generate", GenerateRequest{GenerationMethod: "image", ImageBase64: "!!! bad !!!"})
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "Invalid image data", decodeGenerateResponse(t, rec).Error)
}

func TestHandleGenerateTextAccepted(t *testing.T) {
	ctrl := newTestController(t, &mockClient{}, nil, nil)
	router := newGenerateRouter(ctrl)

	rec := postJSON(t, router, "/api/generate", GenerateRequest{Prompt: "a red dragon"})
	require.Equal(t, 202, rec.Code)

	resp := decodeGenerateResponse(t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "Generation started", resp.Message)

	ctrl.Cancel()
	awaitDone(t, ctrl)
}

func TestHandleGenerateConflict(t *testing.T) {
	ctrl := newTestController(t, &mockClient{}, nil, nil)
	router := newGenerateRouter(ctrl)

	rec := postJSON(t, router, "/api/generate", GenerateRequest{Prompt: "first"})
	require.Equal(t, 202, rec.Code)

	rec = postJSON(t, router, "/api/generate", GenerateRequest{Prompt: "second"})
	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "A generation run is already active", decodeGenerateResponse(t, rec).Error)

	ctrl.Cancel()
	awaitDone(t, ctrl)
}

func TestHandleGenerateWithoutClient(t *testing.T) {
	router := newGenerateRouter(newTestController(t, nil, nil, nil))

	rec := postJSON(t, router, "/api/generate", GenerateRequest{Prompt: "a red dragon"})
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, decodeGenerateResponse(t, rec).Error, "no API client configured")
}

func TestHandleGenerateImageUploadLifecycle(t *testing.T) {
	ctrl := newTestController(t, &mockClient{}, nil, nil)
	router := newGenerateRouter(ctrl)

	encoded := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))
	rec := postJSON(t, router, "/api/generate", GenerateRequest{
		GenerationMethod: "image",
		ImageBase64:      encoded,
		ImageName:        "photo.png",
	})
	require.Equal(t, 202, rec.Code)

	// The decoded upload is staged on disk for the duration of the run
	uploadPath := ctrl.params.ImagePath
	require.NotEmpty(t, uploadPath)
	_, err := os.Stat(uploadPath)
	require.NoError(t, err)

	ctrl.Cancel()
	awaitDone(t, ctrl)

	require.Eventually(t, func() bool {
		_, err := os.Stat(uploadPath)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond, "staged upload not removed after the run settled")
}

func TestHandleStatus(t *testing.T) {
	ctrl := newTestController(t, &mockClient{}, nil, nil)
	router := newGenerateRouter(ctrl)

	req := httptest.NewRequest("GET", "/api/generate/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.False(t, snap.Active)
	assert.Equal(t, PhaseNone, snap.Phase)
}

func TestHandleCancelInactive(t *testing.T) {
	router := newGenerateRouter(newTestController(t, &mockClient{}, nil, nil))

	rec := postJSON(t, router, "/api/generate/cancel", map[string]interface{}{})
	require.Equal(t, 200, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, false, resp["cancelled"])
	assert.Equal(t, "No active generation run", resp["message"])
}

func TestHandleCancelActiveRun(t *testing.T) {
	ctrl := newTestController(t, &mockClient{}, nil, nil)
	router := newGenerateRouter(ctrl)

	accept := postJSON(t, router, "/api/generate", GenerateRequest{Prompt: "a red dragon"})
	require.Equal(t, 202, accept.Code)
	runID := decodeGenerateResponse(t, accept).RunID

	rec := postJSON(t, router, "/api/generate/cancel", map[string]interface{}{})
	require.Equal(t, 200, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["cancelled"])
	assert.Equal(t, runID, resp["runId"])

	snap := awaitDone(t, ctrl)
	assert.True(t, snap.Cancelled)
}
