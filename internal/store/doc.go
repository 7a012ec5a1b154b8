// Package store defines the key-value persistence port used for behavior
// patterns, search history and templates.
//
// The engine loads state once at construction and saves after each
// mutation. Backends only need whole-value get and put:
//
//   - Memory: in-process map (default, tests)
//   - sqlite: single-file database via github.com/mattn/go-sqlite3
//   - badger: embedded LSM store via github.com/dgraph-io/badger/v4
//   - postgres: shared server via github.com/jackc/pgx/v5
//
// Load returns nil, nil for absent keys so callers can tell "empty" from
// "failed". Callers treat failures as degraded state, never as fatal.
package store
