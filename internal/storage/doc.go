// Package storage provides the SQLite-backed persistence core: versioned
// schema migrations recorded in an append-only ledger, validated per-entity
// repositories, and a shared transaction primitive that serializes every
// mutation through a single writer handle.
package storage
