// Package cmd implements the command-line interface of dCommerce. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starting and configuring the dCommerce server (shards, engine, seed, raft)
//   - doc: Generic document store operations (create, read, update, delete, list,
//     search, count, query, info) and the perf benchmark
//   - shop: Commerce workflows on top of the store (cart, loyalty, inventory, orders)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dcommerce -help for a list of all commands.
package cmd
