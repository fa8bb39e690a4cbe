package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/brandlens/brandlens/internal/api/response"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

const keyPrefixLen = 8

// KeyHandler serves admin API key management.
type KeyHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewKeyHandler(st store.Store, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{store: st, logger: logger}
}

type createKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type createKeyResponse struct {
	*models.APIKey
	Key string `json:"key"`
}

// Create mints a new API key. The raw key appears only in this response;
// the store keeps a bcrypt hash and the lookup prefix.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "name is required", nil)
		return
	}
	if len(req.Scopes) == 0 {
		req.Scopes = []string{"analyze"}
	}

	rawKey, err := generateRawKey()
	if err != nil {
		h.logger.Error("failed to generate API key", "error", err)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to generate key", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash API key", "error", err)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to generate key", nil)
		return
	}

	key := &models.APIKey{
		ID:        uuid.New(),
		Name:      req.Name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:keyPrefixLen],
		Scopes:    req.Scopes,
	}
	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		h.logger.Error("failed to store API key", "error", err, "name", req.Name)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to create key", nil)
		return
	}

	h.logger.Info("API key created", "key_id", key.ID, "name", key.Name)
	response.Created(w, createKeyResponse{APIKey: key, Key: rawKey})
}

// List returns all active API keys, hashes excluded.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		h.logger.Error("failed to list API keys", "error", err)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to list keys", nil)
		return
	}
	response.JSON(w, keys)
}

// Revoke soft-deletes an API key.
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid key ID", nil)
		return
	}

	err = h.store.RevokeAPIKey(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "API key not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to revoke API key", "error", err, "key_id", id)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to revoke key", nil)
		return
	}

	h.logger.Info("API key revoked", "key_id", id)
	response.JSON(w, map[string]any{"id": id, "revoked": true})
}

func generateRawKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key material: %w", err)
	}
	return "bl_" + hex.EncodeToString(buf), nil
}
