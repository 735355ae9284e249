package trace

import "github.com/pkg/errors"

// NewStore returns an uninitialized store of the given kind. "" and "memory" select the
// in-memory store, "sqlite" a database file at sqlitePath.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, errors.Errorf("unsupported trace store backend: %s", kind)
	}
}

// CloseIfSupported closes store when it holds resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
