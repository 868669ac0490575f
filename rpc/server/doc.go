// Package server implements the RPC server for the blockchain/IPFS bridge node.
// It provides the adapter that translates RPC requests into onchain module
// calls, along with the core server implementation that drives block
// production and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for queue submissions and inspection
//   - Adapter pattern to decouple the onchain module from RPC mechanisms
//   - Flexible queue backing with support for local and Raft-replicated queues
//   - Block production with the offchain worker running once per finalized block
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes incoming requests.
//
//   - NewBridgeAdapter: Factory function creating an adapter for bridge
//     operations, translating RPC requests to chain.Module method calls and
//     queue inspection reads.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  QueueMode: common.QueueModeLocal,
//	  ShardID: 100,
//	  Transport: common.ServerTransportConf{Endpoint: "0.0.0.0:8080"},
//	  BlockIntervalMillisecond: 6000,
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports two queue modes:
//
//   - QueueModeLocal: Queues live in process memory, suitable for single-node
//     deployments or development environments.
//
//   - QueueModeRaft: Queues are replicated via Raft consensus, providing the
//     same queue content on every bridge node. When using this mode, RAFT
//     configuration (RTTMillisecond, SnapshotEntries, CompactionOverhead,
//     DataDir, ReplicaID, and ClusterMembers) must be properly configured.
//
// The IPFS side of the bridge is selected through NodeAPIAddr: when set, all
// dispatched commands go to a kubo node over its HTTP API; when empty, an
// in-memory node stands in, which is useful for tests and local development.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	Across multiple connections. Each request is processed independently.
//	The Listen method is not thread-safe and should be called only once.
package server
