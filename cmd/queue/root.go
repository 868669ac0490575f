package queue

import (
	"fmt"

	"github.com/pcrawfurd/dIPFS/cmd/util"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	bridge client.IBridgeClient

	// QueueCommands represents the queue command group
	QueueCommands = &cobra.Command{
		Use:               "queue",
		Short:             "Inspect the command queues of a bridge node",
		Long:              "Inspect the command queues of a bridge node. The queues hold the commands of the block currently being built, they are drained and cleared every block.",
		PersistentPreRunE: setupBridgeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the queue command
	util.SetupRPCClientFlags(QueueCommands)

	// Add subcommands
	QueueCommands.AddCommand(lenCmd)
	QueueCommands.AddCommand(lsCmd)
}

// setupBridgeClient initializes the RPC bridge client
func setupBridgeClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the bridge client
	bridge, err = client.NewRPCBridgeClient(
		shardId,
		*config,
		t,
		s,
	)

	return err
}

// parseQueueID maps a queue name to its ID
func parseQueueID(name string) (queue.ID, error) {
	switch name {
	case "connection":
		return queue.Connection, nil
	case "data":
		return queue.Data, nil
	case "dht":
		return queue.Dht, nil
	default:
		return 0, fmt.Errorf("unknown queue %q (expected one of: connection, data, dht)", name)
	}
}
