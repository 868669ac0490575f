package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/pcrawfurd/dIPFS/cmd/util"
	"github.com/joho/godotenv"
	"github.com/pcrawfurd/dIPFS/rpc/common"
	"github.com/pcrawfurd/dIPFS/rpc/serializer"
	"github.com/pcrawfurd/dIPFS/rpc/server"
	"github.com/pcrawfurd/dIPFS/rpc/transport"
	"github.com/pcrawfurd/dIPFS/rpc/transport/tcp"
	"github.com/pcrawfurd/dIPFS/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a dIPFS bridge node",
		Long:    `Start a dIPFS bridge node with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DIPFS_<flag> (e.g. DIPFS_BLOCK_INTERVAL=3000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "queue-mode"
	ServeCmd.PersistentFlags().String(key, "local", cmdUtil.WrapString("How the command queues are stored. 'local' keeps them in process memory, 'raft' replicates them across the cluster"))

	key = "queue-shard"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("The RAFT shard ID the queues live on. Clients must address this shard"))

	key = "block-interval"
	ServeCmd.PersistentFlags().Int(key, server.DefaultBlockIntervalMillisecond, cmdUtil.WrapString("The block interval in milliseconds. Every interval the queued commands are dispatched to the IPFS node and a new block is opened"))

	key = "node-api"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The HTTP API address of the local kubo daemon (e.g. localhost:5001). If unset an in-memory node is used, which is useful for development"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Expose Prometheus metrics on this address (e.g. localhost:9100). Empty disables metrics"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(raft mode) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. Other raft configuration parameters (ElectionRTT=value/10, HeartbeatRTT=value/100) are derived from this value"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("(raft mode) SnapshotEntries defines how often the state machine should be snapshotted automatically. It is defined in terms of the number of applied Raft log entries. SnapshotEntries can be set to 0 to disable such automatic snapshotting (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("(raft mode) CompactionOverhead defines the number of snapshots that should be retained in the system. When a new snapshot is generated, the system will attempt to remove older snapshots that go beyond the specified number of retained snapshots. Recommended value is about 1/2 of SnapshotEntries"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("(raft mode) DataDir is the directory used for storing the snapshots"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(raft mode) ReplicaID is the unique identifier for this NodeHost instance (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(raft mode) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("(raft mode) Timeout in seconds for queue proposals"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the RPC API will listen (e.g. 0.0.0.0:8080, /tmp/dipfs.sock, ...)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse the queue mode
	switch mode := viper.GetString("queue-mode"); mode {
	case "local":
		serveCmdConfig.QueueMode = common.QueueModeLocal
	case "raft":
		serveCmdConfig.QueueMode = common.QueueModeRaft
	default:
		return fmt.Errorf("invalid queue mode: %s (expected one of: local, raft)", mode)
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.ShardID = uint64(viper.GetInt("queue-shard"))
	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.BlockIntervalMillisecond = viper.GetUint64("block-interval")
	serveCmdConfig.NodeAPIAddr = viper.GetString("node-api")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// parse replica id
	if id := viper.GetString("replica-id"); id != "" {
		serveCmdConfig.ReplicaID = cmdUtil.HashString(id)
	} else if serveCmdConfig.IsRaft() {
		// error only if cluster mode
		return fmt.Errorf("ReplicaId is required in raft mode")
	}

	// parse cluster members
	if clusterMembers := viper.GetString("cluster-members"); clusterMembers != "" {
		serveCmdConfig.ClusterMembers = make(map[uint64]string)
		for _, member := range strings.Split(clusterMembers, ",") {
			parts := strings.Split(member, "=")
			if len(parts) != 2 {
				return fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
			}
			serveCmdConfig.ClusterMembers[cmdUtil.HashString(parts[0])] = parts[1]
		}
	} else if serveCmdConfig.IsRaft() {
		// error only if cluster mode
		return fmt.Errorf("ClusterMembers is required in raft mode")
	}

	// test if the replica id is in the cluster members (only for cluster mode)
	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok && serveCmdConfig.IsRaft() {
		return fmt.Errorf("no address found for replica ID %d in cluster members", serveCmdConfig.ReplicaID)
	}

	return nil
}

// run starts the bridge node
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "tcp":
		t = tcp.NewTCPServerTransport(64 * 1024)
	case "unix":
		t = unix.NewUnixServerTransport(64 * 1024)
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dipfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
