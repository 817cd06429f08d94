// Package server hosts the stores of one node and answers rpc requests for them.
//
// Each configured shard gets its own store:
//
//   - ShardTypeLocalIStore: an lstore in this process on the configured engine (maple
//     in memory, or one sqlite file per shard in DataDir). With Seed set a shard
//     without products is loaded with the demo data set on start.
//   - ShardTypeRemoteIStore: a dstore replica. The node host is created on demand and
//     needs RTTMillisecond, SnapshotEntries, CompactionOverhead, DataDir, ReplicaID
//     and ClusterMembers.
//
// Requests are decoded with the configured serializer and answered by the
// IRPCServerAdapter of the shard. A request for an unknown shard gets an error
// response. Every request is counted in the dcommerce_rpc_* metrics of the default
// VictoriaMetrics set, which the http transport serves on GET /metrics.
//
//	config := common.ServerConfig{
//		Shards:        []common.ServerShard{{ShardID: 100, Type: common.ShardTypeLocalIStore}},
//		Engine:        common.EngineMaple,
//		Seed:          true,
//		TimeoutSecond: 5,
//		Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	}
//	s := server.NewRPCServer(config, tcp.NewTCPDefaultServerTransport(), serializer.NewBinarySerializer())
//	go s.Serve()
//	defer s.Shutdown()
package server
