package aoi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/joeblew999/plat-aoi/internal/metrics"
	"github.com/joeblew999/plat-aoi/internal/storage"
)

// Store is the AOI collection kept under storage.KeyAOIs.
type Store struct {
	kv  storage.KV
	log *slog.Logger
	mu  sync.Mutex // serializes read-modify-write
}

// NewStore creates a store on kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv, log: slog.Default().With("component", "aoi-store")}
}

// List returns all AOIs in insertion order. Any read error yields an
// empty slice.
func (s *Store) List() []AOI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns the AOI with id.
func (s *Store) Get(id string) (AOI, bool) {
	for _, a := range s.List() {
		if a.ID == id {
			return a, true
		}
	}
	return AOI{}, false
}

// Save appends a. Failures are logged, not returned.
func (s *Store) Save(a AOI) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.read()
	for _, existing := range list {
		if existing.ID == a.ID {
			s.log.Warn("duplicate aoi id, not saved", "id", a.ID)
			return
		}
	}
	list = append(list, a)
	if s.write(list, "save") {
		metrics.AOIsSavedTotal.Inc()
	}
}

// Remove deletes the AOI with id. Unknown ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.read()
	kept := list[:0]
	for _, a := range list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(list) {
		return
	}
	if s.write(kept, "remove") {
		metrics.AOIsRemovedTotal.Inc()
	}
}

func (s *Store) read() []AOI {
	raw, err := s.kv.Get(context.Background(), storage.KeyAOIs)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			metrics.StorageFailTotal.WithLabelValues("read").Inc()
			s.log.Warn("read aois", "err", err)
		}
		return []AOI{}
	}

	var list []AOI
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.log.Warn("malformed aoi collection, treating as empty", "err", err)
		return []AOI{}
	}
	if list == nil {
		list = []AOI{}
	}
	return list
}

func (s *Store) write(list []AOI, op string) bool {
	data, err := json.Marshal(list)
	if err != nil {
		s.log.Error("encode aois", "op", op, "err", err)
		return false
	}
	if err := s.kv.Set(context.Background(), storage.KeyAOIs, string(data)); err != nil {
		metrics.StorageFailTotal.WithLabelValues(op).Inc()
		s.log.Warn("persist aois", "op", op, "err", err)
		return false
	}
	return true
}
