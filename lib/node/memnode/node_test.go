package memnode

import (
	"bytes"
	"testing"
	"time"

	"github.com/pcrawfurd/dIPFS/lib/node"
)

func send(t *testing.T, n *Node, req node.Request) node.Response {
	t.Helper()
	resp, err := n.Send(req, time.Time{})
	if err != nil {
		t.Fatalf("%s: %v", req.Type, err)
	}
	return resp
}

func TestAddCatRoundTrip(t *testing.T) {
	n := New()
	data := []byte("hello from the chain")

	added := send(t, n, node.NewAddBytesRequest(data))
	if len(added.Cid) == 0 {
		t.Fatal("AddBytes returned no cid")
	}

	got := send(t, n, node.NewCatBytesRequest(added.Cid))
	if !bytes.Equal(got.Data, data) {
		t.Errorf("CatBytes returned %q, want %q", got.Data, data)
	}

	// Identical content must map to the identical cid.
	again := send(t, n, node.NewAddBytesRequest(data))
	if !bytes.Equal(again.Cid, added.Cid) {
		t.Errorf("same content produced different cids: %s vs %s", again.Cid, added.Cid)
	}
}

func TestCatBytesReturnsDetachedData(t *testing.T) {
	n := New()
	data := []byte("immutable block")
	added := send(t, n, node.NewAddBytesRequest(data))

	first := send(t, n, node.NewCatBytesRequest(added.Cid))
	for i := range first.Data {
		first.Data[i] = 'x'
	}

	second := send(t, n, node.NewCatBytesRequest(added.Cid))
	if !bytes.Equal(second.Data, data) {
		t.Errorf("stored block changed after mutating a response, got %q", second.Data)
	}
}

func TestPinLifecycle(t *testing.T) {
	n := New()
	added := send(t, n, node.NewAddBytesRequest([]byte("pinned data")))

	send(t, n, node.NewInsertPinRequest(added.Cid, false))
	if recursive, pinned := n.IsPinned(string(added.Cid)); !pinned || recursive {
		t.Errorf("expected a non-recursive pin, got pinned=%v recursive=%v", pinned, recursive)
	}

	// Pinned blocks cannot be removed.
	if _, err := n.Send(node.NewRemoveBlockRequest(added.Cid), time.Time{}); err == nil {
		t.Error("RemoveBlock succeeded on a pinned block")
	}

	send(t, n, node.NewRemovePinRequest(added.Cid, false))
	send(t, n, node.NewRemoveBlockRequest(added.Cid))
	if n.HasBlock(string(added.Cid)) {
		t.Error("block still present after RemoveBlock")
	}
}

func TestConnectDisconnect(t *testing.T) {
	n := New()
	addr := []byte("/ip4/127.0.0.1/tcp/4001")

	send(t, n, node.NewConnectRequest(addr))
	if !n.IsConnected(string(addr)) {
		t.Fatal("address missing from connected set")
	}

	peers := send(t, n, node.NewPeersRequest())
	if len(peers.Peers) != 1 {
		t.Errorf("Peers returned %d entries, want 1", len(peers.Peers))
	}

	send(t, n, node.NewDisconnectRequest(addr))
	if _, err := n.Send(node.NewDisconnectRequest(addr), time.Time{}); err == nil {
		t.Error("disconnecting twice must fail")
	}

	if _, err := n.Send(node.NewConnectRequest([]byte("not a multiaddr")), time.Time{}); err == nil {
		t.Error("invalid multiaddr accepted")
	}
}

func TestDhtResolution(t *testing.T) {
	n := New(WithSelfID("self"))
	n.AddPeer("peer-1", "/ip4/10.0.0.1/tcp/4001", "/ip4/10.0.0.1/udp/4001/quic-v1")

	found := send(t, n, node.NewFindPeerRequest([]byte("peer-1")))
	if len(found.Addrs) != 2 {
		t.Errorf("FindPeer returned %d addrs, want 2", len(found.Addrs))
	}
	if _, err := n.Send(node.NewFindPeerRequest([]byte("stranger")), time.Time{}); err == nil {
		t.Error("FindPeer on an unknown peer must fail")
	}

	added := send(t, n, node.NewAddBytesRequest([]byte("provided")))
	n.AddProvider(string(added.Cid), "peer-1")
	providers := send(t, n, node.NewGetProvidersRequest(added.Cid))
	if len(providers.Providers) != 2 { // self + peer-1
		t.Errorf("GetProviders returned %d entries, want 2", len(providers.Providers))
	}
}

func TestDeadlineExceeded(t *testing.T) {
	n := New(WithLatency(50 * time.Millisecond))

	_, err := n.Send(node.NewPeersRequest(), time.Now().Add(time.Millisecond))
	if !node.IsCode(err, node.ErrRequestTimeout) {
		t.Errorf("expected RequestTimeout, got %v", err)
	}

	// Without a deadline the same request completes.
	if _, err := n.Send(node.NewPeersRequest(), time.Time{}); err != nil {
		t.Errorf("no-deadline request failed: %v", err)
	}
}
