package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oralabs/ora-memory/internal/config"
	"github.com/oralabs/ora-memory/internal/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	store, err := memory.NewFileStore(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultConfig()
	return newServer(cfg, memory.NewService(store)).Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ORA Memory API", body["service"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRootListsEndpoints(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/api/memory/get-context", endpoints["get_user_context"])
}

func TestGetContextNewUser(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/get-context", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["is_new_user"])
	assert.Equal(t, "alice", body["user_id"])
	assert.Equal(t, "New user - start onboarding", body["context"])

	// Second call: the profile now exists, so the user is returning.
	rec = postJSON(t, h, "/api/memory/get-context", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["is_new_user"])
}

func TestGetContextMissingUserID(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/get-context", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "user_id")
}

func TestGetContextMalformedBody(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/memory/get-context", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decode(t, rec)["error"])
}

func TestSaveConversationRoundTrip(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/save-conversation", map[string]string{
		"user_id":      "bob",
		"user_message": "hello",
		"ora_response": "hi there",
		"emotion":      "happy",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "saved", body["status"])
	assert.Equal(t, "bob", body["user_id"])
	assert.NotEmpty(t, body["timestamp"])

	rec = postJSON(t, h, "/api/memory/search-conversations", map[string]any{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
}

func TestSaveConversationValidation(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/save-conversation", map[string]string{
		"user_id":      "bob",
		"user_message": "hello",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfileReportsFields(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/update-profile", map[string]any{
		"user_id":             "carol",
		"name":                "Carol",
		"onboarding_complete": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "updated", body["status"])
	assert.ElementsMatch(t, []any{"name", "onboarding_complete"}, body["updated_fields"])
}

func TestUpdateProfileEmptyPatch(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/update-profile", map[string]string{"user_id": "carol"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatsUnknownUser(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/memory/get-stats", map[string]string{"user_id": "ghost"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["error"])
}

func TestGetAllUsers(t *testing.T) {
	h := newTestHandler(t)

	postJSON(t, h, "/api/memory/get-context", map[string]string{"user_id": "dave"})
	postJSON(t, h, "/api/memory/save-conversation", map[string]string{
		"user_id":      "dave",
		"user_message": "ping",
		"ora_response": "pong",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/memory/get-all-users", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var overview memory.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview.Users, 1)
	assert.Equal(t, "dave", overview.Users[0].UserID)
	assert.Equal(t, 1, overview.Users[0].ActualConversations)
	assert.Equal(t, 1, overview.Stats.TotalUsers)
	assert.Equal(t, 1, overview.Stats.ActiveToday)
}

func TestAdminPageServed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "ORA Memory Admin")
}
