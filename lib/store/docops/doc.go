// Package docops implements the semantics of every store.IStore operation on top of a db.DocDB.
//
// The functions do no locking and take the current time as a parameter. The local store
// calls them under its mutex with the wall clock; the raft state machine calls them while
// applying a log entry, with the time the proposer wrote into the entry, so that every
// replica produces byte-identical documents.
package docops
