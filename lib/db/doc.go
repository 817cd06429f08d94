// Package db provides a standardized interface for document database implementations.
// It defines the DocDB interface that allows for consistent interaction
// with various storage backends while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for collections of schema-less documents
//   - Feature discovery through capability flags
//   - A shared snapshot format for persistence
//   - Metadata reporting
//
// Key Components:
//
//   - DocDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for writes (Insert, Replace, Delete), lookups (Get, Has),
//     iteration (Scan, Len, Collections), metadata retrieval (GetInfo)
//     and persistence operations (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. This allows clients to
//     discover supported operations at runtime.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the database backends ("maple" and "sqlite").
//
//   - Snapshots: EncodeSnapshot and DecodeSnapshot define the single on-disk format
//     used by every engine's Save and Load. A snapshot holds every collection with its
//     documents in insertion order, so loading one restores ordering exactly.
//
// Note on Ordering:
//   - A collection is a sequence, not a set. Documents come back from Scan in the order
//     they were inserted, Replace keeps a document's position and Delete closes the gap.
//   - Ids are not forced to be unique. Get, Replace and Delete act on the first match.
//
// Note on Ownership:
//   - Insert and Replace copy the document they are given.
//   - Get returns a copy the caller owns.
//   - Scan passes views into the engine for speed; callers clone what they keep.
//
// Related Packages:
//
// The engines/maple package (github.com/ValentinKolb/dCommerce/lib/db/engines/maple) provides
// the in-memory implementation used by default and by every raft replica.
//
// The engines/sqlite package (github.com/ValentinKolb/dCommerce/lib/db/engines/sqlite) stores
// documents as JSON rows in a SQLite file, for local shards whose data must survive a restart.
//
// The util package (github.com/ValentinKolb/dCommerce/lib/db/util) provides statistics helpers
// used by GetInfo, and the testing package provides the conformance suite every engine runs.
package db
