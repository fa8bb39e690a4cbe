package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/brandlens/brandlens/pkg/models"
)

func keyRouter(h *KeyHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/admin/keys", h.Create)
	r.Get("/admin/keys", h.List)
	r.Delete("/admin/keys/{keyID}", h.Revoke)
	return r
}

func TestCreateKey(t *testing.T) {
	st := newMockStore()
	h := NewKeyHandler(st, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/keys",
		strings.NewReader(`{"name": "ci-pipeline", "scopes": ["analyze", "admin"]}`))

	keyRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data struct {
			models.APIKey
			Key string `json:"key"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	raw := envelope.Data.Key
	require.NotEmpty(t, raw)
	assert.True(t, strings.HasPrefix(raw, "bl_"))
	assert.Equal(t, raw[:keyPrefixLen], envelope.Data.KeyPrefix)
	assert.Equal(t, []string{"analyze", "admin"}, envelope.Data.Scopes)

	// stored hash verifies against the raw key
	stored := st.keys[envelope.Data.ID]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.KeyHash), []byte(raw)))
}

func TestCreateKey_DefaultScope(t *testing.T) {
	st := newMockStore()
	h := NewKeyHandler(st, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/keys",
		strings.NewReader(`{"name": "reader"}`))

	keyRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data models.APIKey `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"analyze"}, envelope.Data.Scopes)
}

func TestCreateKey_RequiresName(t *testing.T) {
	h := NewKeyHandler(newMockStore(), testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{}`))

	keyRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListKeys_ExcludesRevoked(t *testing.T) {
	st := newMockStore()
	h := NewKeyHandler(st, testLogger())

	active := &models.APIKey{ID: uuid.New(), Name: "active", KeyPrefix: "bl_aaaaa"}
	st.keys[active.ID] = active
	revoked := &models.APIKey{ID: uuid.New(), Name: "old", KeyPrefix: "bl_bbbbb"}
	st.keys[revoked.ID] = revoked
	require.NoError(t, st.RevokeAPIKey(t.Context(), revoked.ID))

	rec := httptest.NewRecorder()
	keyRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/keys", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []models.APIKey `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "active", envelope.Data[0].Name)
}

func TestRevokeKey(t *testing.T) {
	st := newMockStore()
	h := NewKeyHandler(st, testLogger())

	key := &models.APIKey{ID: uuid.New(), Name: "doomed", KeyPrefix: "bl_ccccc"}
	st.keys[key.ID] = key

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/keys/"+key.ID.String(), nil)

	keyRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, st.keys[key.ID].DeletedAt)
}

func TestRevokeKey_NotFound(t *testing.T) {
	h := NewKeyHandler(newMockStore(), testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/keys/"+uuid.NewString(), nil)

	keyRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
