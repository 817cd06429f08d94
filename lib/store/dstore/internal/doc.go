// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the wire format used to transmit operations
// between the store client and the distributed state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (Create, Update, Delete, Apply) that modify
//     the documents of the database. Commands are serialized and proposed to the RAFT cluster,
//     executed on the state machine, and produce results that are returned to the client.
//
//   - Query System: Defines read operations (Read, List, Search, Count, Query, GetDBInfo)
//     that retrieve documents without modifying them. Queries are executed locally on the
//     statemachine and therefore do not require serialization.
//
// Command Format:
//
//	Commands are serialized into a binary format with the following structure:
//
//	- 1 byte: Command type (Create, Update, Delete, Apply)
//	- 8 bytes: Timestamp of the proposer (unix nanoseconds, big endian)
//	- 4 bytes: Collection length (uint32, big endian)
//	- 4 bytes: ID length (uint32, big endian, 0 for Create)
//	- N bytes: Collection name
//	- M bytes: Document id
//	- Remaining bytes: JSON payload (the fields of Create, the partial document of Update
//	  or the mutation of Apply; absent for Delete)
//
// Query Format:
//
//	Queries are plain structs as they are not persisted in the RAFT log. Only the fields
//	of the respective query type are set (e.g. ID for Read, Spec for Query).
//
// Type Mapping:
//
//	CommandType.ToDBFeature maps every command to the db.Feature flags it needs, so the
//	state machine can reject operations the underlying db.DocDB does not support.
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization.
package internal
