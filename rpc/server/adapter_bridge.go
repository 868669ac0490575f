package server

import (
	"fmt"

	"github.com/pcrawfurd/dIPFS/lib/chain"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/rpc/common"
)

// NewBridgeAdapter creates the adapter translating RPC messages into
// submission handler calls and queue reads.
func NewBridgeAdapter(module *chain.Module, queues queue.IReader) IRPCServerAdapter {
	return &bridgeAdapterImpl{module: module, queues: queues}
}

type bridgeAdapterImpl struct {
	module *chain.Module
	queues queue.IReader
}

func (adapter *bridgeAdapterImpl) Handle(req *common.Message) *common.Message {
	// Check for nil module
	if adapter.module == nil {
		return common.NewErrorResponse("handler: module is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTIpfsConnect:
		return common.NewSubmitResponse(req.MsgType, adapter.module.Connect(req.Origin, req.Payload))
	case common.MsgTIpfsDisconnect:
		return common.NewSubmitResponse(req.MsgType, adapter.module.Disconnect(req.Origin, req.Payload))
	case common.MsgTIpfsAddBytes:
		return common.NewSubmitResponse(req.MsgType, adapter.module.AddBytes(req.Origin, req.Payload))
	case common.MsgTIpfsCatBytes:
		return common.NewSubmitResponse(req.MsgType, adapter.module.CatBytes(req.Origin, req.Payload))
	case common.MsgTIpfsInsertPin:
		return common.NewSubmitResponse(req.MsgType, adapter.module.InsertPin(req.Origin, req.Payload))
	case common.MsgTIpfsRemoveBlock:
		return common.NewSubmitResponse(req.MsgType, adapter.module.RemoveBlock(req.Origin, req.Payload))
	case common.MsgTIpfsRemovePin:
		return common.NewSubmitResponse(req.MsgType, adapter.module.RemovePin(req.Origin, req.Payload))
	case common.MsgTIpfsFindPeer:
		return common.NewSubmitResponse(req.MsgType, adapter.module.DhtFindPeer(req.Origin, req.Payload))
	case common.MsgTIpfsFindProviders:
		return common.NewSubmitResponse(req.MsgType, adapter.module.DhtFindProviders(req.Origin, req.Payload))
	case common.MsgTQueueLen:
		return adapter.handleQueueLen(req)
	case common.MsgTQueueLs:
		return adapter.handleQueueLs(req)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC BridgeAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (adapter *bridgeAdapterImpl) handleQueueLen(req *common.Message) *common.Message {
	id := queue.ID(req.Queue)
	if !id.Valid() {
		return common.NewQueueLenResponse(0, fmt.Errorf("unknown queue id %d", req.Queue))
	}
	n, err := adapter.queues.Len(id)
	return common.NewQueueLenResponse(uint64(n), err)
}

func (adapter *bridgeAdapterImpl) handleQueueLs(req *common.Message) *common.Message {
	id := queue.ID(req.Queue)
	if !id.Valid() {
		return common.NewQueueLsResponse(nil, fmt.Errorf("unknown queue id %d", req.Queue))
	}
	cmds, err := adapter.queues.Snapshot(id)
	if err != nil {
		return common.NewQueueLsResponse(nil, err)
	}
	items := make([][]byte, 0, len(cmds))
	for _, cmd := range cmds {
		items = append(items, cmd.Serialize())
	}
	return common.NewQueueLsResponse(items, nil)
}
