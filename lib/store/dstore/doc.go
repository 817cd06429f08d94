// Package dstore is the raft replicated implementation of store.IStore, built on
// dragonboat.
//
// Every replica runs a concurrent state machine around its own db.DocDB (always
// the in-memory maple engine, durability comes from the raft log and snapshots).
// Mutations are applied with the same docops code the local store uses, so both
// stores behave identically.
//
// Writes (Create, Update, Delete, Apply) are encoded as an internal.Command and
// proposed with SyncPropose. The proposer stamps the command with its wall clock;
// replicas use that time for createdAt/modifiedAt and derive generated ids from
// the replicated state, so all replicas end up with byte-identical documents. An
// Apply with several steps is a single log entry and therefore atomic.
//
// Reads (Read, List, Search, Count, Query) go through SyncRead and are
// linearizable. GetDBInfo uses StaleRead. Proposals that fail with
// ErrSystemBusy are retried after a short pause until the timeout runs out.
//
// PrepareSnapshot encodes the database while no update is applied and
// SaveSnapshot writes the bytes afterwards, which gives a consistent cut without
// blocking writes for the duration of the disk write.
//
//	nh, _ := dragonboat.NewNodeHost(nodeHostConfig)
//	err := nh.StartConcurrentReplica(members, false,
//		dstore.CreateStateMaschineFactory(func() (db.DocDB, error) { return maple.NewMapleDB(nil), nil }),
//		shardConfig)
//	s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// A shard needs a majority of its replicas to make progress; deploy an odd number.
package dstore
