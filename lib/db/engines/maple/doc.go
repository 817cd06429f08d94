// Package maple implements an in-memory document database. It provides a complete
// implementation of the db.DocDB interface with a focus on thread safety and
// predictable ordering.
//
// The package focuses on:
//   - Concurrent access to independent collections without a global lock
//   - Insertion-ordered collections with first-match id lookups
//   - Copy-on-write documents, so readers never observe a half-written document
//   - Persistence through the shared db snapshot format
//
// Key Components:
//
//   - mapleImpl: The central database structure implementing db.DocDB. It keeps a registry
//     of collections in an xsync.MapOf. A collection is created on its first Insert and
//     lives until the database is closed or a snapshot is loaded.
//
//   - internal.Collection: An ordered slice of documents guarded by a read/write lock.
//     Lookups scan linearly and stop at the first document whose "id" matches, which
//     gives the "first match wins" semantics of the DocDB interface even when callers
//     inserted duplicate ids.
//
// Internal Mechanisms:
//
//   - Copy-on-write: Insert and Replace store a deep copy of the caller's document and a
//     stored document is never changed afterwards; Replace swaps in a new map. Scan can
//     therefore pass the stored maps to its callback without copying, and Get only has to
//     copy the single document it returns.
//
//   - Locking: Each collection has its own sync.RWMutex. Scan holds the read lock of the
//     scanned collection for the whole iteration. Operations spanning several documents
//     (e.g. read-modify-write) are not atomic at this level; the store layer above
//     serializes them.
//
//   - Persistence Format: Save and Load use db.EncodeSnapshot and db.DecodeSnapshot.
//     Save captures each collection atomically but not all collections at the same instant.
//     The raft state machine prepares snapshots while no proposal is applied, which
//     gives a consistent cut.
//
//   - Metrics and Monitoring: GetInfo samples up to DBOptions.InfoSamples documents per
//     collection, estimates the typical JSON size with a util.SizeEstimator and reports the
//     distribution of documents over collections.
//
// The maple package is the default engine of local shards and the only engine used by
// raft replicas, whose durability comes from the raft log and snapshots instead.
package maple
