package ipfs

import (
	"fmt"
	"os"

	"github.com/pcrawfurd/dIPFS/cmd/util"
	"github.com/spf13/cobra"
)

var (
	connectCmd = &cobra.Command{
		Use:   "connect [multiaddr]",
		Short: "Queue a connection to a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.Connect(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("connect queued")
			return nil
		},
	}
	disconnectCmd = &cobra.Command{
		Use:   "disconnect [multiaddr]",
		Short: "Queue a disconnect from a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.Disconnect(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("disconnect queued")
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [data|@file]",
		Short: "Queue data to be added to IPFS",
		Long:  "Queue data to be added to IPFS. The argument is used verbatim unless it starts with '@', in which case it names a file to read the data from.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(args[0])
			if len(args[0]) > 1 && args[0][0] == '@' {
				var err error
				data, err = os.ReadFile(args[0][1:])
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
			}
			if err := bridge.AddBytes(util.GetOrigin(), data); err != nil {
				return err
			}
			fmt.Println("add queued")
			return nil
		},
	}
	catCmd = &cobra.Command{
		Use:   "cat [cid]",
		Short: "Queue fetching the content behind a CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.CatBytes(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("cat queued")
			return nil
		},
	}
	pinCmd = &cobra.Command{
		Use:   "pin [cid]",
		Short: "Queue pinning a CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.InsertPin(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("pin queued")
			return nil
		},
	}
	unpinCmd = &cobra.Command{
		Use:   "unpin [cid]",
		Short: "Queue unpinning a CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.RemovePin(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("unpin queued")
			return nil
		},
	}
	rmBlockCmd = &cobra.Command{
		Use:   "rm-block [cid]",
		Short: "Queue removing a raw block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.RemoveBlock(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("rm-block queued")
			return nil
		},
	}
	findPeerCmd = &cobra.Command{
		Use:   "find-peer [peer-id]",
		Short: "Queue a DHT lookup for a peer's addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.DhtFindPeer(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("find-peer queued")
			return nil
		},
	}
	findProvidersCmd = &cobra.Command{
		Use:   "find-providers [cid]",
		Short: "Queue a DHT lookup for providers of a CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bridge.DhtFindProviders(util.GetOrigin(), []byte(args[0])); err != nil {
				return err
			}
			fmt.Println("find-providers queued")
			return nil
		},
	}
)
