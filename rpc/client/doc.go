// Package client implements RPC clients for the document store.
// It provides an implementation of the store.IStore interface that forwards
// every operation to a remote server via RPC.
//
// The package focuses on:
//   - Transparent RPC access to local (lstore) and raft replicated (dstore) shards
//   - Integration with the transport and serialization layers
//   - Error handling: a store.Error raised on the server is returned as a *store.Error
//     with the same RetCode
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. This client forwards all operations to remote servers via the configured
//     transport layer.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create store client for shard 100
//	s, _ := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//
//	// Use the store
//	id, _ := s.Create("products", doc.MustFromMap(map[string]any{"name": "Desk Lamp", "price": 39.5}))
//	product, found, _ := s.Read("products", id)
//
//	// Or run the commerce operations on top of it
//	svc := commerce.NewService(s)
//	cart, _ := svc.CreateCart("CUST001", "STORE001", "USD")
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
