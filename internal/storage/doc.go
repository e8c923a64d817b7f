// Package storage persists the guild schedule document.
//
// The document is rewritten wholesale on every save, so writes must be
// atomic: a torn write would corrupt every guild's state, not just one.
// Drivers:
//   - "file": JSON document, write-to-temp-then-rename (default)
//   - "sqlite": SQLite database file (build with -tags sqlite)
//   - "memory": volatile, for tests and dry runs
package storage
