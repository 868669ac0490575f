// Package client implements the RPC client for the blockchain/IPFS bridge.
// It provides an implementation of the IBridgeClient interface that submits
// commands to a remote bridge node and inspects its queues via RPC.
//
// The package focuses on:
//   - Transparent RPC access to the bridge submission handlers
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCBridgeClient: Factory function that creates a client implementing
//     the IBridgeClient interface. This client forwards all submissions to a
//     remote bridge node via the configured transport layer.
//
// Usage Example:
//
//		// Configure the client
//		config := common.ClientConfig{
//		  TimeoutSecond: 5,
//		  Transport: common.ClientTransportConf{
//		    Endpoints:              []string{"localhost:5000"},
//		    RetryCount:             3,
//		    ConnectionsPerEndpoint: 1,
//		  },
//		}
//
//	 // Create a serializer
//		serializer := serializer.NewBinarySerializer()
//
//		// Create bridge client
//		bridge, _ := client.NewRPCBridgeClient(100, config, tcp.NewTCPClientTransport(), serializer)
//
//		// Queue commands for the next block
//		bridge.Connect("alice", []byte("/ip4/10.0.0.1/tcp/4001/p2p/QmPeer"))
//		bridge.AddBytes("alice", []byte("hello ipfs"))
//
//		// Inspect the pending commands
//		n, _ := bridge.QueueLen(queue.Data)
//		cmds, _ := bridge.QueueLs(queue.Data)
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
