package offchain

import (
	"testing"
	"time"

	"github.com/pcrawfurd/dIPFS/lib/chain"
	"github.com/pcrawfurd/dIPFS/lib/node"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/lqueue"
)

// fakeGateway records every request and optionally injects errors via a
// script keyed by request index.
type fakeGateway struct {
	requests  []node.Request
	deadlines []time.Time
	script    func(i int, req node.Request) error
}

func (g *fakeGateway) Send(req node.Request, deadline time.Time) (node.Response, error) {
	i := len(g.requests)
	g.requests = append(g.requests, req)
	g.deadlines = append(g.deadlines, deadline)
	if g.script != nil {
		if err := g.script(i, req); err != nil {
			return node.Response{}, err
		}
	}
	return node.Response{Type: node.ResponseFor[req.Type]}, nil
}

func (g *fakeGateway) countByType(t node.RequestType) int {
	n := 0
	for _, req := range g.requests {
		if req.Type == t {
			n++
		}
	}
	return n
}

func newFilledStore(t *testing.T) queue.IStore {
	t.Helper()
	store := lqueue.NewLocalStore()
	mod := chain.NewModule(store, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	if err := mod.Connect("a", []byte("/ip4/1.2.3.4/tcp/4001")); err != nil {
		t.Fatal(err)
	}
	if err := mod.AddBytes("a", []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := mod.DhtFindPeer("a", []byte("peer-1")); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRunCadence(t *testing.T) {
	cases := []struct {
		height       uint64
		wantConnect  int
		wantData     int
		wantDht      int
		wantMetadata int
	}{
		{height: 1, wantConnect: 1, wantData: 1, wantDht: 1, wantMetadata: 0},
		{height: 2, wantConnect: 1, wantData: 0, wantDht: 1, wantMetadata: 0},
		{height: 5, wantConnect: 1, wantData: 1, wantDht: 1, wantMetadata: 1},
		{height: 6, wantConnect: 1, wantData: 0, wantDht: 1, wantMetadata: 0},
		{height: 10, wantConnect: 1, wantData: 0, wantDht: 1, wantMetadata: 1},
	}

	for _, c := range cases {
		store := newFilledStore(t)
		gw := &fakeGateway{}
		if err := NewWorker(store, gw).Run(c.height); err != nil {
			t.Fatalf("height %d: run failed: %v", c.height, err)
		}

		if got := gw.countByType(node.ReqConnect); got != c.wantConnect {
			t.Errorf("height %d: %d connect requests, want %d", c.height, got, c.wantConnect)
		}
		if got := gw.countByType(node.ReqAddBytes); got != c.wantData {
			t.Errorf("height %d: %d data requests, want %d", c.height, got, c.wantData)
		}
		if got := gw.countByType(node.ReqFindPeer); got != c.wantDht {
			t.Errorf("height %d: %d dht requests, want %d", c.height, got, c.wantDht)
		}
		if got := gw.countByType(node.ReqPeers); got != c.wantMetadata {
			t.Errorf("height %d: %d metadata requests, want %d", c.height, got, c.wantMetadata)
		}
	}
}

func TestFailedCommandDoesNotStopThePass(t *testing.T) {
	store := lqueue.NewLocalStore()
	mod := chain.NewModule(store, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	for _, data := range []string{"one", "two", "three"} {
		if err := mod.AddBytes("a", []byte(data)); err != nil {
			t.Fatal(err)
		}
	}

	gw := &fakeGateway{script: func(i int, req node.Request) error {
		if i == 1 {
			return node.NewError(node.ErrRequestFailed, "boom")
		}
		return nil
	}}

	if err := NewWorker(store, gw).Run(1); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := gw.countByType(node.ReqAddBytes); got != 3 {
		t.Errorf("every command must be attempted, got %d of 3", got)
	}
}

func TestTimeoutIsNotRetried(t *testing.T) {
	store := lqueue.NewLocalStore()
	mod := chain.NewModule(store, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	if err := mod.CatBytes("a", []byte("cid-1")); err != nil {
		t.Fatal(err)
	}

	gw := &fakeGateway{script: func(i int, req node.Request) error {
		return node.NewError(node.ErrRequestTimeout, "deadline passed")
	}}

	if err := NewWorker(store, gw).Run(1); err != nil {
		t.Fatalf("a timed out command must not fail the run: %v", err)
	}
	if got := gw.countByType(node.ReqCatBytes); got != 1 {
		t.Errorf("timed out command must be sent exactly once, got %d", got)
	}
}

func TestProtocolViolationAbortsOnlyItsPass(t *testing.T) {
	store := lqueue.NewLocalStore()
	mod := chain.NewModule(store, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	for _, addr := range []string{"/ip4/1.2.3.4/tcp/4001", "/ip4/5.6.7.8/tcp/4001"} {
		if err := mod.Connect("a", []byte(addr)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mod.DhtFindPeer("a", []byte("peer-1")); err != nil {
		t.Fatal(err)
	}
	if err := mod.AddBytes("a", []byte("payload")); err != nil {
		t.Fatal(err)
	}

	gw := &fakeGateway{script: func(i int, req node.Request) error {
		if i == 0 {
			return node.NewError(node.ErrProtocolViolation, "response type mismatch")
		}
		return nil
	}}

	if err := NewWorker(store, gw).Run(1); err != nil {
		t.Fatalf("a violation in an early pass must not surface: %v", err)
	}
	if got := gw.countByType(node.ReqConnect); got != 1 {
		t.Errorf("connection pass must stop at the violation, got %d requests", got)
	}
	if got := gw.countByType(node.ReqFindPeer); got != 1 {
		t.Errorf("dht pass must still run, got %d requests", got)
	}
	if got := gw.countByType(node.ReqAddBytes); got != 1 {
		t.Errorf("data pass must still run, got %d requests", got)
	}
}

// A batch collected at block finalization stays dispatchable after the next
// block's initialization has already cleared the queues.
func TestCollectedBatchSurvivesQueueReset(t *testing.T) {
	store := newFilledStore(t)
	gw := &fakeGateway{}
	worker := NewWorker(store, gw)
	mod := chain.NewModule(store, chain.NewSignedOriginAuth(), chain.NewEventLog(16))

	batch := worker.Collect(1)
	mod.OnInitialize(2)

	if err := worker.Dispatch(batch); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if got := gw.countByType(node.ReqConnect); got != 1 {
		t.Errorf("got %d connect requests, want 1", got)
	}
	if got := gw.countByType(node.ReqFindPeer); got != 1 {
		t.Errorf("got %d dht requests, want 1", got)
	}
	if got := gw.countByType(node.ReqAddBytes); got != 1 {
		t.Errorf("got %d data requests, want 1", got)
	}
}

func TestMetadataProbeErrorIsSurfaced(t *testing.T) {
	gw := &fakeGateway{script: func(i int, req node.Request) error {
		if req.Type == node.ReqPeers {
			return node.NewError(node.ErrRequestTimeout, "probe too slow")
		}
		return nil
	}}

	if err := NewWorker(lqueue.NewLocalStore(), gw).Run(5); err == nil {
		t.Fatal("a failed metadata probe must surface to the caller")
	}
}

// Data commands submitted during an even block are dropped without ever
// being dispatched: the worker skips the data queue at even heights and the
// next odd block clears it before the worker sees it again.
func TestDataQueuedAtEvenHeightIsNeverDispatched(t *testing.T) {
	store := lqueue.NewLocalStore()
	mod := chain.NewModule(store, chain.NewSignedOriginAuth(), chain.NewEventLog(16))
	gw := &fakeGateway{}
	worker := NewWorker(store, gw)

	// Block 2: the data command arrives, the worker runs but skips the
	// data queue.
	mod.OnInitialize(2)
	if err := mod.AddBytes("a", []byte("lost")); err != nil {
		t.Fatal(err)
	}
	if err := worker.Run(2); err != nil {
		t.Fatal(err)
	}

	// Block 3: the odd-height reset wipes the data queue before the
	// worker's next look at it.
	mod.OnInitialize(3)
	if err := worker.Run(3); err != nil {
		t.Fatal(err)
	}

	if got := gw.countByType(node.ReqAddBytes); got != 0 {
		t.Fatalf("data command from the even block reached the node %d times", got)
	}
}
