// Package storage implements the pluggable persistence adapters Gun's
// graph can durably write through: an in-memory map for tests, a
// file-per-soul store, a bbolt-backed embedded KV ("radisk" mode), and an
// optional Postgres-backed adapter. Grounded on
// original_source/src/storage.rs Storage trait (MemoryStorage/SledStorage/
// LocalStorage), kept in the teacher's internal/<domain> package-per-
// concern layout (e.g. internal/database).
package storage

import "github.com/gundb/gun-go/internal/graph"

// Storage is the pluggable persistence contract (spec §6 "Storage adapter
// contract"). Implementations must be safe for concurrent use.
type Storage interface {
	Get(soul string) (*graph.Node, error)
	Put(soul string, node *graph.Node) error
	Has(soul string) (bool, error)
}
