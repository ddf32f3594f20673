package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/memchat/internal/llm"
)

func newTestRouter(p Pipeline) http.Handler {
	svc, _ := newTestService(p, nil, Windows{})
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/chat", h.Chat)
	r.Post("/api/session", h.CreateSession)
	r.Get("/api/session/{sessionID}", h.GetSession)
	r.Delete("/api/session/{sessionID}", h.DeleteSession)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func TestHandler_Chat(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	rec := do(t, r, http.MethodPost, "/api/chat", `{"message": "My favorite color is blue"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp["session_id"])
	assert.Equal(t, "echo: My favorite color is blue", resp["reply"])
	assert.Nil(t, resp["analysis"])
	assert.Equal(t, false, resp["clarification_needed"])
	assert.Equal(t, false, resp["no_new_info"])
	assert.Contains(t, resp, "memory")
	assert.Contains(t, resp, "debug_info")

	debug := resp["debug_info"].(map[string]any)
	assert.Contains(t, debug, "memory_update_prompt")
	assert.Contains(t, debug, "response_generation_prompt")
}

func TestHandler_ChatContinuesSession(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	rec := do(t, r, http.MethodPost, "/api/session", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateSessionResponse
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.SessionID)

	body := fmt.Sprintf(`{"message": "hi", "session_id": %q}`, created.SessionID)
	rec = do(t, r, http.MethodPost, "/api/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/session/"+created.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sess SessionResponse
	decodeData(t, rec, &sess)
	assert.Equal(t, created.SessionID, sess.SessionID)
	assert.Len(t, sess.History, 2)
	assert.Equal(t, 1, sess.Memory.Len())
	assert.NotNil(t, sess.UpdatedAt)
}

func TestHandler_ChatValidation(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"missing message", `{}`},
		{"blank message", `{"message": "   "}`},
		{"session id too long", fmt.Sprintf(`{"message": "hi", "session_id": %q}`, strings.Repeat("x", 129))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandler_ChatMissingAPIKey(t *testing.T) {
	r := newTestRouter(&fakePipeline{err: llm.ErrMissingAPIKey})

	rec := do(t, r, http.MethodPost, "/api/chat", `{"message": "hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "LLM_API_KEY")
}

func TestHandler_GetUnknownSession(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	rec := do(t, r, http.MethodGet, "/api/session/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, rec.Body.String())
}

func TestHandler_NewSessionHasEmptyState(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	rec := do(t, r, http.MethodPost, "/api/session", `{"session_id": "fresh"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/session/fresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeData(t, rec, &resp)
	assert.Equal(t, []any{}, resp["history"])
	assert.Equal(t, map[string]any{"memory_summary": []any{}, "raw_memory_entries": []any{}}, resp["memory"])
	assert.Nil(t, resp["analysis"])
}

func TestHandler_DeleteSession(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	rec := do(t, r, http.MethodPost, "/api/session", `{"session_id": "gone"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodDelete, "/api/session/gone", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/session/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodDelete, "/api/session/gone", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
