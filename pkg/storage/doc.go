// Package storage provides the game store: a write-back player cache over
// SQLite, plus an in-memory variant for tests and dry runs.
//
// Two SQLite drivers are supported. "sqlite" is modernc.org/sqlite and needs
// no cgo; "sqlite3" is github.com/mattn/go-sqlite3. Both run with a single
// connection, WAL journaling and a busy timeout.
//
// The baseline schema (version 1) is created on open. Later schema changes
// are exposed as migrate converters through Converters and applied by the
// server before LoadAll runs.
package storage
