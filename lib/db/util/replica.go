package util

import "hash/fnv"

// ReplicaID maps a human readable replica name (e.g. "node-1") to a stable
// numeric raft replica id. The result is never 0, which raft reserves.
func ReplicaID(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	if id := h.Sum64(); id != 0 {
		return id
	}
	return 1
}
