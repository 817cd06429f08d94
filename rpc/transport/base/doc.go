// Package base contains the stream transport shared by the tcp and unix packages.
// Both sides exchange frames of a 20 byte header (shard id, request id, payload
// length; big endian) followed by the payload. Payloads are limited to MaxFrameSize.
//
// A client keeps ConnectionsPerEndpoint connections per endpoint and picks one per
// request in round robin order. Requests on one connection are multiplexed: the
// writer tags each frame with a fresh request id and a single reader goroutine
// hands the response frames to the waiting callers. When reading fails the
// pending requests of that connection fail, the connection is re-dialed, and the
// caller retries with exponential backoff up to RetryCount times.
//
// The server reads the frames of a connection sequentially and runs up to
// WorkersPerConn handlers concurrently, so responses may be written out of
// order. Read buffers come from a sync.Pool sized by BufferSize.
//
// Only the dialing and listening differ between transports; they are injected
// with IClientConnector and IServerConnector.
package base
