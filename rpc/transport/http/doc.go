// Package http carries rpc payloads over plain HTTP/1.1.
//
// Every request is a POST of the serialized request to /<shardId> on one of the
// configured endpoints (chosen round robin); the response body is the serialized
// response. Failed round trips are retried up to RetryCount times. The server
// also exposes GET /metrics in the prometheus text format and logs every
// request when the log level is debug.
package http
