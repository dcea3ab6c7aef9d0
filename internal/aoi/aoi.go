// Package aoi persists Areas of Interest in a storage.KV.
//
// The store is best effort: reads degrade to an empty list and writes
// that fail are logged and dropped. It never returns storage errors to
// callers.
package aoi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AOI is a named, persisted area of interest.
type AOI struct {
	ID        string          `json:"id" doc:"Unique AOI identifier" example:"5b0b9c8e-2f0e-4f5c-9d43-8a1f0c2b7e11"`
	Name      string          `json:"name" doc:"Display name" example:"AOI 2026-10-15 09:30:00"`
	Geometry  json.RawMessage `json:"geometry" doc:"GeoJSON geometry or feature"`
	CreatedAt string          `json:"createdAt" doc:"ISO-8601 creation time" example:"2026-10-15T09:30:00Z"`
}

// New builds a record with a fresh id. An empty name defaults to one
// derived from now.
func New(name string, geometry json.RawMessage, now time.Time) AOI {
	if name == "" {
		name = DefaultName(now)
	}
	return AOI{
		ID:        uuid.NewString(),
		Name:      name,
		Geometry:  geometry,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// DefaultName labels an AOI by its save time.
func DefaultName(now time.Time) string {
	return fmt.Sprintf("AOI %s", now.Local().Format("2006-01-02 15:04:05"))
}
