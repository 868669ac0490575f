// Package cmd implements the command-line interface for the dIPFS bridge.
// It provides a hierarchical command structure with operations for running
// a bridge node and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - ipfs: Commands for queueing IPFS operations (connect, add, pin, etc.)
//   - queue: Commands for inspecting the pending command queues
//   - serve: Commands for starting and configuring a bridge node
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dipfs -help for a list of all commands.
package cmd
