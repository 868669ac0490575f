package server

import (
	"testing"
	"time"

	"github.com/pcrawfurd/dIPFS/lib/chain"
	"github.com/pcrawfurd/dIPFS/lib/node/memnode"
	"github.com/pcrawfurd/dIPFS/lib/offchain"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/lqueue"
)

// Commands submitted into the finalized block must reach the node even
// though the next block's initialization wipes the queues: the freeze has
// to happen before the wipe, only the dispatch may lag behind.
func TestProduceBlockFreezesQueuesBeforeReset(t *testing.T) {
	queues := lqueue.NewLocalStore()
	module := chain.NewModule(queues, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	gw := memnode.New()

	s := &rpcServer{
		module: module,
		worker: offchain.NewWorker(queues, gw),
	}
	s.height.Store(1)
	module.OnInitialize(1)

	addr := "/ip4/127.0.0.1/tcp/4001"
	if err := module.Connect("alice", []byte(addr)); err != nil {
		t.Fatal(err)
	}

	s.produceBlock()

	// The next block is open and its queues are empty
	if got := s.Height(); got != 2 {
		t.Fatalf("expected height 2 after production, got %d", got)
	}
	if n, _ := queues.Len(queue.Connection); n != 0 {
		t.Fatalf("expected an empty connection queue after the reset, got %d entries", n)
	}

	// The dispatch runs in the background, wait for it to land
	deadline := time.Now().Add(2 * time.Second)
	for !gw.IsConnected(addr) {
		if time.Now().After(deadline) {
			t.Fatal("the connect command never reached the node")
		}
		time.Sleep(time.Millisecond)
	}
}

// Repeated production ticks must never lose a submission that landed in
// the block being finalized.
func TestProduceBlockNeverDropsConnections(t *testing.T) {
	queues := lqueue.NewLocalStore()
	module := chain.NewModule(queues, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	gw := memnode.New()

	s := &rpcServer{
		module: module,
		worker: offchain.NewWorker(queues, gw),
	}
	s.height.Store(1)
	module.OnInitialize(1)

	addrs := []string{
		"/ip4/10.0.0.1/tcp/4001",
		"/ip4/10.0.0.2/tcp/4001",
		"/ip4/10.0.0.3/tcp/4001",
	}
	for _, addr := range addrs {
		if err := module.Connect("alice", []byte(addr)); err != nil {
			t.Fatal(err)
		}
		s.produceBlock()
	}

	deadline := time.Now().Add(2 * time.Second)
	for _, addr := range addrs {
		for !gw.IsConnected(addr) {
			if time.Now().After(deadline) {
				t.Fatalf("connect to %s never reached the node", addr)
			}
			time.Sleep(time.Millisecond)
		}
	}
}
