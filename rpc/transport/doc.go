// Package transport is the contract between the rpc client/server and the wire.
// A transport moves opaque byte payloads addressed to a shard; encoding them is
// the job of the serializer package.
//
// Implementations live in the sub packages: http (JSON friendly, also serves
// /metrics), tcp and unix (framed streams built on base).
package transport
