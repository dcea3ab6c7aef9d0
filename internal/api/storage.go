package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-aoi/internal/storage"
)

// StorageHandler reports what the KV backend holds.
type StorageHandler struct {
	kv      storage.KV
	backend string
}

// NewStorageHandler creates a new storage handler.
func NewStorageHandler(kv storage.KV, backend string) *StorageHandler {
	return &StorageHandler{kv: kv, backend: backend}
}

// RegisterRoutes registers storage routes with Huma.
func (h *StorageHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/storage", h.GetStorage, huma.OperationTags("health"))
}

// KeyInfo describes one stored key.
type KeyInfo struct {
	Key     string `json:"key" doc:"Storage key"`
	Present bool   `json:"present" doc:"Whether the key has a value"`
	Bytes   int    `json:"bytes" doc:"Size of the stored value"`
}

// StorageOutput is the response for the storage summary.
type StorageOutput struct {
	Body struct {
		Backend string    `json:"backend" doc:"Storage backend"`
		Keys    []KeyInfo `json:"keys" doc:"Known keys"`
	}
}

// GetStorage summarizes the known keys.
func (h *StorageHandler) GetStorage(ctx context.Context, input *struct{}) (*StorageOutput, error) {
	if h.kv == nil {
		return nil, huma.Error503ServiceUnavailable("Storage not available")
	}

	out := &StorageOutput{}
	out.Body.Backend = h.backend
	for _, key := range []string{storage.KeyAOIs, storage.KeyTheme} {
		v, err := h.kv.Get(ctx, key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			out.Body.Keys = append(out.Body.Keys, KeyInfo{Key: key})
		case err != nil:
			return nil, huma.Error500InternalServerError("Failed to read storage", err)
		default:
			out.Body.Keys = append(out.Body.Keys, KeyInfo{Key: key, Present: true, Bytes: len(v)})
		}
	}
	return out, nil
}
