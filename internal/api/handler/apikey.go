package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyunwoo-jung/tripline/internal/api/response"
	"github.com/hyunwoo-jung/tripline/internal/store"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// rawKeyPrefixLen must match what the auth middleware slices off a bearer
// token for the indexed lookup.
const rawKeyPrefixLen = 8

// Keys provisions and revokes the API keys that client applications
// authenticate with. Admin scope only.
type Keys struct {
	store store.Store
}

// NewKeys creates the key-management handler set.
func NewKeys(store store.Store) *Keys {
	return &Keys{store: store}
}

type createKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type createKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /api/v1/admin/keys. The raw key appears in this
// response and nowhere else; only its bcrypt hash is stored.
func (h *Keys) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "name is required", nil)
		return
	}

	rawKey := fmt.Sprintf("tlk_%s", strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""))
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
		return
	}

	now := time.Now()
	key := &models.APIKey{
		ID:        uuid.New(),
		Name:      req.Name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:rawKeyPrefixLen],
		Scopes:    req.Scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Error(w, http.StatusConflict, "DUPLICATE_KEY", "API key with this name already exists", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
		return
	}

	response.Created(w, createKeyResponse{
		ID:        key.ID.String(),
		Name:      key.Name,
		Key:       rawKey,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
	})
}

// Revoke handles DELETE /api/v1/admin/keys/{keyID}. Revocation is a soft
// delete; the key stops authenticating on the next request.
func (h *Keys) Revoke(w http.ResponseWriter, r *http.Request) {
	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid key ID", nil)
		return
	}

	if err := h.store.RevokeAPIKey(r.Context(), keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "API key not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke key", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
