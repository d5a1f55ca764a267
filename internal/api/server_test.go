package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/healthlog/internal/parse"
	"github.com/pbaille/healthlog/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "healthlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, parse.New(nil), "127.0.0.1:0", nil)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	rec, body := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAddEntry(t *testing.T) {
	srv := testServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/entries", `{"text":"hr 60 resting"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hr", body["entry_type"])
	assert.Equal(t, "HR 60 bpm (resting)", body["display"])
	assert.Len(t, body["hash"], 4)
}

func TestAddEntry_ParseFailureIs400(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"unparseable exercise", `{"text":"squat"}`},
		{"condition conflict", `{"text":"hr 60 resting active"}`},
		{"inapplicable condition", `{"text":"hr 60 oral"}`},
		{"missing text", `{"text":"  "}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, srv, http.MethodPost, "/entries", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetEntry(t *testing.T) {
	srv := testServer(t)

	_, created := doJSON(t, srv, http.MethodPost, "/entries", `{"text":"temp 36.6"}`)
	hash := created["hash"].(string)

	rec, body := doJSON(t, srv, http.MethodGet, "/entries/"+hash, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Temp 36.6°C", body["display"])

	rec, _ = doJSON(t, srv, http.MethodGet, "/entries/zzzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEntry(t *testing.T) {
	srv := testServer(t)

	_, created := doJSON(t, srv, http.MethodPost, "/entries", `{"text":"hr 60"}`)
	hash := created["hash"].(string)

	rec, body := doJSON(t, srv, http.MethodPut, "/entries/"+hash, `{"text":"hr 65 resting"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HR 65 bpm (resting)", body["display"])
	assert.Equal(t, hash, body["hash"], "hash survives correction")

	rec, _ = doJSON(t, srv, http.MethodPut, "/entries/"+hash, `{"text":"squat"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bad replacement text leaves entry alone")

	rec, _ = doJSON(t, srv, http.MethodPut, "/entries/zzzz", `{"text":"hr 65"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	srv := testServer(t)

	_, created := doJSON(t, srv, http.MethodPost, "/entries", `{"text":"cp 45"}`)
	hash := created["hash"].(string)

	rec, body := doJSON(t, srv, http.MethodDelete, "/entries/"+hash, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["deleted_at"])

	rec, _ = doJSON(t, srv, http.MethodGet, "/entries/"+hash, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodDelete, "/entries/"+hash, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEntries(t *testing.T) {
	srv := testServer(t)

	for _, text := range []string{"hr 60", "squat 100 3x5", "hr 65"} {
		rec, _ := doJSON(t, srv, http.MethodPost, "/entries", `{"text":"`+text+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := doJSON(t, srv, http.MethodGet, "/entries", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 3)

	rec, body = doJSON(t, srv, http.MethodGet, "/entries?type=hr", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 2)

	rec, body = doJSON(t, srv, http.MethodGet, "/entries?limit=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 1)
}

func TestListTags(t *testing.T) {
	srv := testServer(t)

	doJSON(t, srv, http.MethodPost, "/entries", `{"text":"hr 60 @oura"}`)
	doJSON(t, srv, http.MethodPost, "/entries", `{"text":"hr 65 @oura"}`)

	rec, body := doJSON(t, srv, http.MethodGet, "/tags", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	tags := body["tags"].([]any)
	require.Len(t, tags, 1)
	first := tags[0].(map[string]any)
	assert.Equal(t, "oura", first["tag"])
	assert.Equal(t, 2.0, first["use_count"])
}
