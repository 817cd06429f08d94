// Package rpc exposes store.IStore over the network.
//
// A server hosts any number of shards, each a local or raft replicated store, and
// answers common.Message requests addressed to a shard id. The client package
// implements store.IStore on top of such a server, so the commerce service and the
// CLI work the same against a remote shard as against an in-process store.
//
// Sub packages:
//
//   - common: the message format, request parameters, configuration, logging
//   - serializer: binary, json and gob encodings of a message
//   - transport: how encoded messages travel (http, tcp, unix)
//   - client, server: both ends of the store protocol
package rpc
