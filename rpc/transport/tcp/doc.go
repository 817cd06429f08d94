// Package tcp runs the framed stream transport of package base over TCP.
//
// The socket options of common.TCPConf (no delay, kernel buffer sizes, keep alive,
// linger) are applied to every dialed and accepted connection. Servers default to
// 512 KB read buffers and 64 concurrent requests per connection.
package tcp
