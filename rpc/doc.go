// Package rpc provides a comprehensive framework for remote procedure calls
// in the blockchain to IPFS bridge. It acts as the communication layer
// between clients and bridge nodes, enabling submissions across network
// boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPC client implementation of the bridge submission surface,
//     allowing applications to queue intents on a remote bridge node.
//
//   - server: The bridge node itself: it hosts the command queues, produces
//     blocks, runs the offchain worker against the local node and serves
//     the submission RPC surface.
package rpc
