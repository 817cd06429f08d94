// Package common holds what the rpc client, server, serializers and transports share.
//
// Message is the single request/response type. Documents travel as JSON in Value,
// operation parameters (filters, search, query spec, mutation) as JSON in Params.
// An error response keeps the store.RetCode in Code, so a *store.Error raised by
// the server is a *store.Error with the same code on the client.
//
// ServerConfig and ClientConfig are filled by the cmd packages from flags and
// DCOMMERCE_* variables. InitLoggers installs the line logger used for the
// dragonboat loggers and the loggers of this module.
package common
