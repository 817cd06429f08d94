// Package util holds helpers shared by the db engines: the statistics reported by
// DocDB.GetInfo (collection balance, sampled document sizes) and the mapping of
// replica names to raft replica ids.
package util
