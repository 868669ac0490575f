package ipfs

import (
	"github.com/pcrawfurd/dIPFS/cmd/util"
	"github.com/pcrawfurd/dIPFS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	bridge client.IBridgeClient

	// IpfsCommands represents the ipfs command group
	IpfsCommands = &cobra.Command{
		Use:               "ipfs",
		Short:             "Queue IPFS commands on a bridge node",
		Long:              "Queue IPFS commands on a bridge node. Submissions are enqueued for the next block, they do not wait for the command to reach the IPFS node.",
		PersistentPreRunE: setupBridgeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the ipfs command
	util.SetupRPCClientFlags(IpfsCommands)

	// Add subcommands
	IpfsCommands.AddCommand(connectCmd)
	IpfsCommands.AddCommand(disconnectCmd)
	IpfsCommands.AddCommand(addCmd)
	IpfsCommands.AddCommand(catCmd)
	IpfsCommands.AddCommand(pinCmd)
	IpfsCommands.AddCommand(unpinCmd)
	IpfsCommands.AddCommand(rmBlockCmd)
	IpfsCommands.AddCommand(findPeerCmd)
	IpfsCommands.AddCommand(findProvidersCmd)
	IpfsCommands.AddCommand(perfTestCmd)
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
