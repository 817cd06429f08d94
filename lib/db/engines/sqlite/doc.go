// Package sqlite implements db.DocDB on top of SQLite (github.com/mattn/go-sqlite3).
//
// Every document is one row of a single "documents" table holding the collection name,
// the document id and the JSON encoded document. An autoincrement sequence column keeps
// the insertion order, so Scan, Get, Replace and Delete behave like the in-memory engine:
// first match wins and Replace keeps a document's position.
//
// The engine is meant for local shards that must survive a restart
// (dcommerce serve --engine sqlite). Raft replicas always use the in-memory engine.
package sqlite
