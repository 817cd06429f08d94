package transport

import (
	"github.com/ValentinKolb/dCommerce/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc answers the request payload addressed to shardId. It must be safe
// for concurrent use and always returns a response payload (errors are encoded in it).
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport receives requests and passes them to the registered handler
type IRPCServerTransport interface {
	// RegisterHandler sets the handler, it must be called before Listen
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves until Shutdown is called (returns nil) or the listener fails
	Listen(config common.ServerConfig) error
	// Shutdown makes Listen return. It is safe to call before Listen has bound.
	Shutdown() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport sends requests to a server. Send may be called concurrently.
type IRPCClientTransport interface {
	Connect(config common.ClientConfig) error
	// Send blocks until the response for shardId arrives, the request times out or all retries failed
	Send(shardId uint64, req []byte) (resp []byte, err error)
	Close() error
}
