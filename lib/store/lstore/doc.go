// Package lstore implements a local, single-node document store based on the
// store.IStore interface. It provides a thin wrapper around any db.DocDB
// implementation that adds the store semantics of the docops package and
// coarse-grained locking.
//
// Key Features:
//   - Works with every db.DocDB engine (in-memory maple, file-backed sqlite)
//   - One mutex around every operation
//   - Injectable clock for deterministic timestamps (WithClock)
//   - Feature detection to handle unsupported operations gracefully
//
// Implementation Details:
//
//   - Locking: The store holds a single sync.Mutex for the entire span of each
//     operation, including the read-modify-write of Update and Apply. No other caller
//     can observe the store between the partial writes of one logical update, so a
//     cart's totals always match its lines and a loyalty card's balance always matches
//     its ledger. Operations are bounded by in-memory work (or one SQLite statement),
//     so the lock is never held across network I/O.
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.DocDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return store.RetCUnsupportedOperation.
//
//   - Composition Architecture: The store.DBFactory injects the underlying db.DocDB.
//
// Usage Example:
//
//	factory := func() (db.DocDB, error) { return maple.NewMapleDB(nil), nil }
//	s, err := lstore.NewLocalStore(factory)
//
//	id, err := s.Create("customers", doc.Document{"name": doc.Str("Alice")})
//	customer, found, err := s.Read("customers", id)
//
// For distributed scenarios requiring consensus across multiple nodes, consider
// using the dstore package instead, which provides a RAFT-based implementation
// of the same interface.
package lstore
