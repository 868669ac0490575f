package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server util)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Shared transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings shared by all stream transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerTransportConf holds the transport settings of the server
type ServerTransportConf struct {
	// Endpoint is the address the server listens on
	// (e.g. "0.0.0.0:8080" for tcp or "/tmp/dipfs.sock" for unix)
	Endpoint string
	SocketConf
	TCPConf
}

// ClientTransportConf holds the transport settings of the client
type ClientTransportConf struct {
	Endpoints              []string
	ConnectionsPerEndpoint int

	// Retry settings: a failed request is retried up to RetryCount times,
	// with an exponential backoff starting at RetryBackoffMillisecond
	RetryCount              int
	RetryBackoffMillisecond int

	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// QueueMode selects how the command queues are stored.
type QueueMode string

const (
	// QueueModeLocal keeps the queues in process memory
	QueueModeLocal QueueMode = "local"
	// QueueModeRaft replicates the queues via RAFT consensus
	QueueModeRaft QueueMode = "raft"
)

// ServerConfig holds all configuration parameters for a bridge node.
type ServerConfig struct {
	// Queue storage mode and the RAFT shard the queues live on
	QueueMode QueueMode
	ShardID   uint64

	// Dragenboat parameters (only used in raft mode)
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// RPC parameters
	TimeoutSecond int64
	Transport     ServerTransportConf

	// Block production
	BlockIntervalMillisecond uint64

	// Node gateway settings. NodeAPIAddr is the HTTP API address of the
	// local kubo daemon; an empty value selects the in-memory node.
	NodeAPIAddr string

	// Optional Prometheus metrics listen address (empty disables metrics)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// IsRaft reports whether the queues are replicated via RAFT
func (c *ServerConfig) IsRaft() bool {
	return c.QueueMode == QueueModeRaft
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Bridge settings
	addSection("Bridge")
	addField("Queue Mode", string(c.QueueMode))
	addField("Block Interval", fmt.Sprintf("%d ms", c.BlockIntervalMillisecond))
	if c.NodeAPIAddr != "" {
		addField("Node API", c.NodeAPIAddr)
	} else {
		addField("Node API", "in-memory node")
	}
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.IsRaft() {
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.ClusterMembers[c.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Queue Shard", strconv.FormatUint(c.ShardID, 10))
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		addField("Check Quorum", fmt.Sprintf("%t", true))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))

		// Storage
		addSection("Storage")
		addField("Data Directory", c.DataDir)

		// Cluster configuration
		addSection("Cluster")
		sb.WriteString("  Initial Cluster Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Retry Backoff", fmt.Sprintf("%d ms", c.Transport.RetryBackoffMillisecond))
	connsPerEP := c.Transport.ConnectionsPerEndpoint
	if connsPerEP < 1 {
		connsPerEP = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connsPerEP))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
