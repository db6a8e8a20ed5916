package bots_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botsHandler "github.com/nmoralesv/horasbot/internal/handler/bots"
	"github.com/nmoralesv/horasbot/internal/model/bot"
	botstore "github.com/nmoralesv/horasbot/internal/repository/bots"
)

func setupRouter() *chi.Mux {
	store := botstore.NewMemory()
	h := botsHandler.New(store)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func doRaw(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeBot(t *testing.T, resp *httptest.ResponseRecorder) bot.Bot {
	t.Helper()
	var b bot.Bot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return b
}

func TestIndexEmpty(t *testing.T) {
	r := setupRouter()

	resp := do(t, r, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	var list []bot.Bot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
}

func TestCreateThenShow(t *testing.T) {
	r := setupRouter()

	created := decodeBot(t, do(t, r, http.MethodPost, "/", map[string]any{
		"name": "New Bot",
		"info": "This is the brand new bot!!!",
	}))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "New Bot", created.Name)
	assert.True(t, created.Active)

	resp := do(t, r, http.MethodGet, "/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	shown := decodeBot(t, resp)
	assert.Equal(t, created.ID, shown.ID)
	assert.Equal(t, "This is the brand new bot!!!", shown.Info)
}

func TestCreateStatus(t *testing.T) {
	r := setupRouter()

	resp := do(t, r, http.MethodPost, "/", map[string]any{"name": "b"})
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestShowUnknown(t *testing.T) {
	r := setupRouter()

	resp := do(t, r, http.MethodGet, "/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpsertInsertsWhenMissing(t *testing.T) {
	r := setupRouter()

	resp := do(t, r, http.MethodPut, "/custom-id", map[string]any{
		"name": "Upserted",
		"info": "fresh",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	stored := decodeBot(t, resp)
	assert.Equal(t, "custom-id", stored.ID)

	shown := decodeBot(t, do(t, r, http.MethodGet, "/custom-id", nil))
	assert.Equal(t, "Upserted", shown.Name)
}

func TestUpsertReplacesExisting(t *testing.T) {
	r := setupRouter()
	created := decodeBot(t, do(t, r, http.MethodPost, "/", map[string]any{"name": "old", "info": "old"}))

	resp := do(t, r, http.MethodPut, "/"+created.ID, map[string]any{"name": "new", "info": "new"})
	require.Equal(t, http.StatusOK, resp.Code)

	shown := decodeBot(t, do(t, r, http.MethodGet, "/"+created.ID, nil))
	assert.Equal(t, "new", shown.Name)
	assert.Equal(t, created.CreatedAt, shown.CreatedAt, "upsert keeps the original creation time")
}

func TestPatchReplacesField(t *testing.T) {
	r := setupRouter()
	created := decodeBot(t, do(t, r, http.MethodPost, "/", map[string]any{"name": "before", "info": "keep"}))

	resp := doRaw(t, r, http.MethodPatch, "/"+created.ID,
		`[{"op":"replace","path":"/name","value":"after"}]`)
	require.Equal(t, http.StatusOK, resp.Code)

	patched := decodeBot(t, resp)
	assert.Equal(t, "after", patched.Name)
	assert.Equal(t, "keep", patched.Info)
	assert.Equal(t, created.ID, patched.ID)
}

func TestPatchMalformed(t *testing.T) {
	r := setupRouter()
	created := decodeBot(t, do(t, r, http.MethodPost, "/", map[string]any{"name": "b"}))

	resp := doRaw(t, r, http.MethodPatch, "/"+created.ID, `{"not":"a patch"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPatchUnknownBot(t *testing.T) {
	r := setupRouter()

	resp := doRaw(t, r, http.MethodPatch, "/no-such-id",
		`[{"op":"replace","path":"/name","value":"after"}]`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDestroy(t *testing.T) {
	r := setupRouter()
	created := decodeBot(t, do(t, r, http.MethodPost, "/", map[string]any{"name": "b"}))

	resp := do(t, r, http.MethodDelete, "/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = do(t, r, http.MethodGet, "/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, r, http.MethodDelete, "/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
