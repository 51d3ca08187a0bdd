package storage

import "fmt"

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// NewStore builds a backend by name. path is the sqlite file or the badger
// directory; an empty badger path keeps the data in memory.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return newSQLiteStore(path)
	case BackendBadger:
		return NewBadgerStore(BadgerConfig{Path: path, InMemory: path == ""}), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
