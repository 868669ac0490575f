package client

import (
	"fmt"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/rpc/common"
	"github.com/pcrawfurd/dIPFS/rpc/serializer"
	"github.com/pcrawfurd/dIPFS/rpc/transport"
)

// IBridgeClient is the client-side view of a bridge node. Submissions enqueue
// a command for the node's offchain worker, they do not wait for the command
// to reach the IPFS node. The queue methods inspect the pending commands of
// the block currently being built.
type IBridgeClient interface {
	// Submissions (one per onchain operation)
	Connect(origin string, addr []byte) error
	Disconnect(origin string, addr []byte) error
	AddBytes(origin string, data []byte) error
	CatBytes(origin string, cid []byte) error
	InsertPin(origin string, cid []byte) error
	RemoveBlock(origin string, cid []byte) error
	RemovePin(origin string, cid []byte) error
	DhtFindPeer(origin string, peerID []byte) error
	DhtFindProviders(origin string, cid []byte) error

	// Queue inspection
	QueueLen(id queue.ID) (uint64, error)
	QueueLs(id queue.ID) ([]command.Command, error)
}

// NewRPCBridgeClient creates a new RPC bridge client
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns an IBridgeClient and an error
func NewRPCBridgeClient(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (IBridgeClient, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new bridge client
	c := rpcBridgeClient{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the bridge client
	return &c, nil
}

type rpcBridgeClient struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IBridgeClient)
// --------------------------------------------------------------------------

func (c *rpcBridgeClient) Connect(origin string, addr []byte) (err error) {
	req := common.NewConnectRequest(origin, addr)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) Disconnect(origin string, addr []byte) (err error) {
	req := common.NewDisconnectRequest(origin, addr)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) AddBytes(origin string, data []byte) (err error) {
	req := common.NewAddBytesRequest(origin, data)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) CatBytes(origin string, cid []byte) (err error) {
	req := common.NewCatBytesRequest(origin, cid)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) InsertPin(origin string, cid []byte) (err error) {
	req := common.NewInsertPinRequest(origin, cid)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) RemoveBlock(origin string, cid []byte) (err error) {
	req := common.NewRemoveBlockRequest(origin, cid)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) RemovePin(origin string, cid []byte) (err error) {
	req := common.NewRemovePinRequest(origin, cid)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) DhtFindPeer(origin string, peerID []byte) (err error) {
	req := common.NewFindPeerRequest(origin, peerID)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) DhtFindProviders(origin string, cid []byte) (err error) {
	req := common.NewFindProvidersRequest(origin, cid)
	_, err = invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	return err
}

func (c *rpcBridgeClient) QueueLen(id queue.ID) (uint64, error) {
	req := common.NewQueueLenRequest(uint8(id))
	resp, err := invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *rpcBridgeClient) QueueLs(id queue.ID) ([]command.Command, error) {
	req := common.NewQueueLsRequest(uint8(id))
	resp, err := invokeRPCRequest(c.shardId, req, c.transport, c.serializer)
	if err != nil {
		return nil, err
	}
	cmds := make([]command.Command, 0, len(resp.Items))
	for i, item := range resp.Items {
		var cmd command.Command
		if err := cmd.Deserialize(item); err != nil {
			return nil, fmt.Errorf("RPC BridgeClient - invalid command at index %d: %s", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
