// Package unix runs the framed stream transport of package base over unix domain
// sockets. The endpoint is the socket path; a stale socket file at that path is
// removed before listening. It is the fastest option when client and server
// share a host.
package unix
