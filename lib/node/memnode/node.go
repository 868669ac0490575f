// Package memnode provides an in-process IPFS node implementing the gateway
// interface directly. It is used by the test suites and by `dipfs serve
// --node mem`, where running a full kubo daemon would be overkill. Content
// ids are computed for real (CIDv1, sha2-256) so add/cat round trips behave
// exactly like they do against a genuine node.
package memnode

import (
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/multiformats/go-multihash"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/pcrawfurd/dIPFS/lib/node"
)

// Node is an in-memory IPFS node. All maps are concurrent so the gateway can
// be shared between the offchain worker and test goroutines.
type Node struct {
	selfID  string
	latency time.Duration

	blocks    *xsync.MapOf[string, []byte]   // cid -> data
	pins      *xsync.MapOf[string, bool]     // cid -> recursive
	connected *xsync.MapOf[string, struct{}] // multiaddr -> connected
	peers     *xsync.MapOf[string, []string] // peer id -> known addresses
	providers *xsync.MapOf[string, []string] // cid -> providing peer ids
}

// Option configures a Node.
type Option func(*Node)

// WithLatency makes every request take the given amount of simulated time.
// Requests whose deadline falls inside that window report a timeout, which
// gives the tests a deterministic way to exercise the timeout path.
func WithLatency(d time.Duration) Option {
	return func(n *Node) { n.latency = d }
}

// WithSelfID overrides the node's own peer id.
func WithSelfID(id string) Option {
	return func(n *Node) { n.selfID = id }
}

// New creates an empty in-memory node.
func New(opts ...Option) *Node {
	n := &Node{
		selfID:    "memnode-self",
		blocks:    xsync.NewMapOf[string, []byte](),
		pins:      xsync.NewMapOf[string, bool](),
		connected: xsync.NewMapOf[string, struct{}](),
		peers:     xsync.NewMapOf[string, []string](),
		providers: xsync.NewMapOf[string, []string](),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AddPeer registers a peer the node can resolve via FindPeer.
func (n *Node) AddPeer(peerID string, addrs ...string) {
	n.peers.Store(peerID, addrs)
}

// AddProvider registers a peer as a provider for a content id.
func (n *Node) AddProvider(cidStr, peerID string) {
	existing, _ := n.providers.Load(cidStr)
	n.providers.Store(cidStr, append(existing, peerID))
}

// HasBlock reports whether data for the content id is stored.
func (n *Node) HasBlock(cidStr string) bool {
	_, ok := n.blocks.Load(cidStr)
	return ok
}

// IsPinned reports whether the content id is pinned.
func (n *Node) IsPinned(cidStr string) (recursive, pinned bool) {
	recursive, pinned = n.pins.Load(cidStr)
	return
}

// IsConnected reports whether the multiaddr is in the connected set.
func (n *Node) IsConnected(addr string) bool {
	_, ok := n.connected.Load(addr)
	return ok
}

// --------------------------------------------------------------------------
// Interface Methods (docu see node/interface.go)
// --------------------------------------------------------------------------

// Send handles one typed request against the in-memory state.
func (n *Node) Send(req node.Request, deadline time.Time) (node.Response, error) {
	if n.latency > 0 && !deadline.IsZero() {
		remaining := time.Until(deadline)
		if n.latency > remaining {
			if remaining > 0 {
				time.Sleep(remaining)
			}
			return node.Response{}, node.NewError(node.ErrRequestTimeout,
				fmt.Sprintf("%s: no response before deadline", req.Type))
		}
		time.Sleep(n.latency)
	}

	resp, err := n.handle(req)
	if err != nil {
		return node.Response{}, err
	}
	return resp, node.CheckResponse(req, resp)
}

func (n *Node) handle(req node.Request) (node.Response, error) {
	switch req.Type {
	case node.ReqConnect:
		addr, err := ma.NewMultiaddr(string(req.Addr))
		if err != nil {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("invalid multiaddr: %v", err))
		}
		n.connected.Store(addr.String(), struct{}{})
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqDisconnect:
		addr, err := ma.NewMultiaddr(string(req.Addr))
		if err != nil {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("invalid multiaddr: %v", err))
		}
		if _, ok := n.connected.LoadAndDelete(addr.String()); !ok {
			return node.Response{}, node.NewError(node.ErrRequestFailed, "not connected")
		}
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqAddBytes:
		mh, err := multihash.Sum(req.Data, multihash.SHA2_256, -1)
		if err != nil {
			return node.Response{}, node.NewError(node.ErrRequestFailed, err.Error())
		}
		c := cid.NewCidV1(cid.Raw, mh)
		data := make([]byte, len(req.Data))
		copy(data, req.Data)
		n.blocks.Store(c.String(), data)
		return node.Response{Type: node.RespAddBytes, Cid: []byte(c.String())}, nil

	case node.ReqCatBytes:
		c, err := n.decodeCid(req.Cid)
		if err != nil {
			return node.Response{}, err
		}
		data, ok := n.blocks.Load(c)
		if !ok {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("block %s not found", c))
		}
		// Hand out a copy so callers cannot mutate the stored block
		out := make([]byte, len(data))
		copy(out, data)
		return node.Response{Type: node.RespCatBytes, Data: out}, nil

	case node.ReqRemoveBlock:
		c, err := n.decodeCid(req.Cid)
		if err != nil {
			return node.Response{}, err
		}
		if _, pinned := n.pins.Load(c); pinned {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("block %s is pinned", c))
		}
		if _, ok := n.blocks.LoadAndDelete(c); !ok {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("block %s not found", c))
		}
		return node.Response{Type: node.RespRemoveBlock, Cid: []byte(c)}, nil

	case node.ReqInsertPin:
		c, err := n.decodeCid(req.Cid)
		if err != nil {
			return node.Response{}, err
		}
		if _, ok := n.blocks.Load(c); !ok {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("block %s not found", c))
		}
		n.pins.Store(c, req.Recursive)
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqRemovePin:
		c, err := n.decodeCid(req.Cid)
		if err != nil {
			return node.Response{}, err
		}
		if _, ok := n.pins.LoadAndDelete(c); !ok {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("%s is not pinned", c))
		}
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqFindPeer:
		addrs, ok := n.peers.Load(string(req.PeerID))
		if !ok {
			return node.Response{}, node.NewError(node.ErrRequestFailed, fmt.Sprintf("peer %s not found", req.PeerID))
		}
		resp := node.Response{Type: node.RespFindPeer}
		for _, addr := range addrs {
			resp.Addrs = append(resp.Addrs, []byte(addr))
		}
		return resp, nil

	case node.ReqGetProviders:
		c, err := n.decodeCid(req.Cid)
		if err != nil {
			return node.Response{}, err
		}
		resp := node.Response{Type: node.RespGetProviders}
		if _, ok := n.blocks.Load(c); ok {
			resp.Providers = append(resp.Providers, []byte(n.selfID))
		}
		if ids, ok := n.providers.Load(c); ok {
			for _, id := range ids {
				resp.Providers = append(resp.Providers, []byte(id))
			}
		}
		return resp, nil

	case node.ReqPeers:
		resp := node.Response{Type: node.RespPeers}
		n.connected.Range(func(addr string, _ struct{}) bool {
			resp.Peers = append(resp.Peers, []byte(addr))
			return true
		})
		return resp, nil

	default:
		return node.Response{}, node.NewError(node.ErrCantCreateRequest, fmt.Sprintf("unknown request type %d", req.Type))
	}
}

// decodeCid validates the opaque payload as a content id.
func (n *Node) decodeCid(raw []byte) (string, error) {
	c, err := cid.Decode(string(raw))
	if err != nil {
		return "", node.NewError(node.ErrRequestFailed, fmt.Sprintf("invalid cid: %v", err))
	}
	return c.String(), nil
}
