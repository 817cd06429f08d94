// Package store provides a high-level interface for document storage operations
// with id generation, timestamping, querying and atomic compound mutations.
// It serves as an abstraction layer over the lower-level db.DocDB implementations.
//
// The package focuses on:
//   - A unified interface (IStore) for document operations across different backends
//   - Pluggable storage backend architecture through DBFactory pattern
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting with
//     a document store: Create, Read, Update, Delete, List, Search, Count, the paged
//     Query and the atomic Apply of an aggregate.Mutation. All implementations share
//     this common interface, allowing applications to switch between backends
//     without code changes.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. Not-found is not an error in this package; it is
//     reported through boolean results, so callers check it explicitly.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.DocDB
//     instances, providing dependency injection and flexible configuration of
//     storage backends.
//
// Implementations:
//
//	The semantics of every operation live in the docops package and are shared by both
//	implementations of the IStore interface:
//
//	- Local Store (lstore): A single-node implementation that holds one mutex for the
//	  whole duration of every operation. Compound operations (read-modify-write) therefore
//	  never interleave. Available in the "github.com/ValentinKolb/dCommerce/lib/store/lstore" package.
//
//	- Distributed Store (dstore): An implementation built on the Dragonboat
//	  RAFT consensus library. Every write, including a whole Apply, is a single raft
//	  log entry applied in order on every replica.
//	  Available in the "github.com/ValentinKolb/dCommerce/lib/store/dstore" package.
//
// A third implementation is the RPC client (rpc/client), which forwards every call to a
// shard served by a remote dcommerce server.
package store
