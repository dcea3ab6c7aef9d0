package server

import (
	"fmt"
	"strings"

	"github.com/joeblew999/plat-aoi/internal/db"
	"github.com/joeblew999/plat-aoi/internal/storage"
)

// Storage backends selectable with --store.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendDuckDB = "duckdb"
)

// OpenKV opens the named backend under dataDir. The returned func
// releases it.
func OpenKV(backend, dataDir string) (storage.KV, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(backend) {
	case BackendMemory:
		return storage.NewMemory(), noop, nil
	case BackendFile, "":
		return storage.NewFile(dataDir), noop, nil
	case BackendDuckDB:
		conn, err := db.Get(db.Config{DataDir: dataDir, DBName: "aoi"})
		if err != nil {
			return nil, nil, fmt.Errorf("open duckdb: %w", err)
		}
		return db.NewKV(conn), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want memory, file or duckdb)", backend)
	}
}
