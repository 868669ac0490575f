package server

import (
	"strings"
	"testing"

	"github.com/pcrawfurd/dIPFS/lib/chain"
	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/lqueue"
	"github.com/pcrawfurd/dIPFS/rpc/common"
)

func newTestAdapter() (IRPCServerAdapter, queue.IStore) {
	queues := lqueue.NewLocalStore()
	module := chain.NewModule(queues, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	return NewBridgeAdapter(module, queues), queues
}

func TestAdapterRoutesSubmissions(t *testing.T) {
	adapter, queues := newTestAdapter()

	resp := adapter.Handle(common.NewConnectRequest("alice", []byte("/ip4/10.0.0.1/tcp/4001/p2p/QmPeer")))
	if resp.Err != "" {
		t.Fatalf("connect submission failed: %s", resp.Err)
	}
	if resp.MsgType != common.MsgTIpfsConnect {
		t.Errorf("expected response type %s, got %s", common.MsgTIpfsConnect, resp.MsgType)
	}

	resp = adapter.Handle(common.NewAddBytesRequest("alice", []byte("hello")))
	if resp.Err != "" {
		t.Fatalf("add submission failed: %s", resp.Err)
	}

	if n, _ := queues.Len(queue.Connection); n != 1 {
		t.Errorf("expected 1 connection command, got %d", n)
	}
	if n, _ := queues.Len(queue.Data); n != 1 {
		t.Errorf("expected 1 data command, got %d", n)
	}
}

func TestAdapterRejectsUnsignedOrigin(t *testing.T) {
	adapter, queues := newTestAdapter()

	resp := adapter.Handle(common.NewAddBytesRequest("", []byte("hello")))
	if resp.Err == "" {
		t.Fatal("expected an error for an unsigned origin")
	}
	if n, _ := queues.Len(queue.Data); n != 0 {
		t.Errorf("rejected submission must not be queued, got %d entries", n)
	}
}

func TestAdapterQueueInspection(t *testing.T) {
	adapter, _ := newTestAdapter()

	for _, data := range []string{"one", "two"} {
		if resp := adapter.Handle(common.NewAddBytesRequest("alice", []byte(data))); resp.Err != "" {
			t.Fatalf("add submission failed: %s", resp.Err)
		}
	}

	resp := adapter.Handle(common.NewQueueLenRequest(uint8(queue.Data)))
	if resp.Err != "" {
		t.Fatalf("queue len failed: %s", resp.Err)
	}
	if resp.Count != 2 {
		t.Errorf("expected queue len 2, got %d", resp.Count)
	}

	resp = adapter.Handle(common.NewQueueLsRequest(uint8(queue.Data)))
	if resp.Err != "" {
		t.Fatalf("queue ls failed: %s", resp.Err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 listed commands, got %d", len(resp.Items))
	}
	var cmd command.Command
	if err := cmd.Deserialize(resp.Items[0]); err != nil {
		t.Fatalf("listed command must round trip: %v", err)
	}
	if cmd.Kind != command.KindAddBytes || string(cmd.Payload) != "one" {
		t.Errorf("unexpected first listed command: %v %q", cmd.Kind, cmd.Payload)
	}
}

func TestAdapterRejectsUnknownQueue(t *testing.T) {
	adapter, _ := newTestAdapter()

	resp := adapter.Handle(common.NewQueueLenRequest(42))
	if resp.Err == "" {
		t.Fatal("expected an error for an unknown queue id")
	}
}

func TestAdapterRejectsUnknownMessageType(t *testing.T) {
	adapter, _ := newTestAdapter()

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTCustom})
	if resp.MsgType != common.MsgTError {
		t.Fatalf("expected error response, got %s", resp.MsgType)
	}
	if !strings.Contains(resp.Err, "message type") {
		t.Errorf("unexpected error message: %s", resp.Err)
	}
}
