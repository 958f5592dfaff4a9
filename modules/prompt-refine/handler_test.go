package promptrefine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefineRouter(t *testing.T, s *Service) *mux.Router {
	t.Helper()
	h := NewHandler(s)
	require.NotNil(t, h)
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postRefine(t *testing.T, router *mux.Router, payload interface{}) (*httptest.ResponseRecorder, RefineResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/prompt/refine", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp RefineResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestNewHandlerNilService(t *testing.T) {
	assert.Nil(t, NewHandler(nil))
}

func TestHandleRefineMissingPrompt(t *testing.T) {
	_, s := setupTestService(t)
	router := newRefineRouter(t, s)

	rec, resp := postRefine(t, router, RefineRequest{SessionID: "sess-1"})
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, ErrCodeInvalidRequest, resp.ErrorCode)
	assert.Contains(t, resp.ErrorMessage, "prompt is required")
}

func TestHandleRefinePromptTooLong(t *testing.T) {
	_, s := setupTestService(t)
	router := newRefineRouter(t, s)

	long := make([]byte, MaxPromptLength+1)
	for i := range long {
		long[i] = 'a'
	}

	rec, resp := postRefine(t, router, RefineRequest{Prompt: string(long), SessionID: "sess-1"})
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, ErrCodeInvalidRequest, resp.ErrorCode)
	assert.Contains(t, resp.ErrorMessage, "too long")
}

func TestHandleRefineGuestNeedsSession(t *testing.T) {
	_, s := setupTestService(t)
	router := newRefineRouter(t, s)

	rec, resp := postRefine(t, router, RefineRequest{Prompt: "a red dragon"})
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, ErrCodeInvalidRequest, resp.ErrorCode)
	assert.Contains(t, resp.ErrorMessage, "sessionId is required")
}

func TestHandleRefineGuestLimitReached(t *testing.T) {
	_, s := setupTestService(t)
	router := newRefineRouter(t, s)

	for i := 0; i < MaxGuestRefines; i++ {
		_, err := s.IncrementRefineUsage(context.Background(), "sess-1")
		require.NoError(t, err)
	}

	rec, resp := postRefine(t, router, RefineRequest{Prompt: "a red dragon", SessionID: "sess-1"})
	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, ErrCodeLimitReached, resp.ErrorCode)
	assert.Equal(t, MaxGuestRefines, resp.UsedCount)
	assert.Equal(t, MaxGuestRefines, resp.MaxCount)
}
