// Package httpapi implements the node gateway against a local kubo daemon
// via its HTTP RPC API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/pcrawfurd/dIPFS/lib/node"
)

var log = logger.GetLogger("node")

// DefaultAPIAddr is where a default kubo installation listens.
const DefaultAPIAddr = "localhost:5001"

type gatewayImpl struct {
	sh *shell.Shell
}

// NewGateway creates a gateway talking to the kubo HTTP API at apiAddr.
func NewGateway(apiAddr string) node.IGateway {
	return &gatewayImpl{sh: shell.NewShell(apiAddr)}
}

// result pairs a response with its error for the completion channel.
type result struct {
	resp node.Response
	err  error
}

// --------------------------------------------------------------------------
// Interface Methods (docu see node/interface.go)
// --------------------------------------------------------------------------

// Send issues one request against the daemon. The deadline is enforced twice:
// as a context deadline on the HTTP call and as a bounded wait on the
// completion channel, since not every shell operation takes a context.
func (g *gatewayImpl) Send(req node.Request, deadline time.Time) (node.Response, error) {
	ctx := context.Background()
	cancel := func() {}
	if !deadline.IsZero() {
		ctx, cancel = context.WithDeadline(ctx, deadline)
	}
	defer cancel()

	done := make(chan result, 1)
	go func() {
		resp, err := g.roundTrip(ctx, req)
		done <- result{resp, err}
	}()

	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		timeoutCh = time.After(time.Until(deadline))
	}

	select {
	case r := <-done:
		if r.err != nil {
			return node.Response{}, g.asGatewayError(r.err, req)
		}
		return r.resp, node.CheckResponse(req, r.resp)
	case <-timeoutCh:
		return node.Response{}, node.NewError(node.ErrRequestTimeout,
			fmt.Sprintf("%s: no response before deadline", req.Type))
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// asGatewayError maps a shell error to the gateway error taxonomy. Node error
// strings are not guaranteed to be UTF-8, so they are decoded best-effort
// before logging.
func (g *gatewayImpl) asGatewayError(err error, req node.Request) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return node.NewError(node.ErrRequestTimeout,
			fmt.Sprintf("%s: no response before deadline", req.Type))
	}
	msg := strings.ToValidUTF8(err.Error(), "�")
	log.Errorf("IPFS: request failed: %s", msg)
	return node.NewError(node.ErrRequestFailed, msg)
}

func (g *gatewayImpl) roundTrip(ctx context.Context, req node.Request) (node.Response, error) {
	switch req.Type {
	case node.ReqConnect:
		if err := g.sh.Request("swarm/connect", string(req.Addr)).Exec(ctx, nil); err != nil {
			return node.Response{}, err
		}
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqDisconnect:
		if err := g.sh.Request("swarm/disconnect", string(req.Addr)).Exec(ctx, nil); err != nil {
			return node.Response{}, err
		}
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqAddBytes:
		cid, err := g.sh.Add(bytes.NewReader(req.Data))
		if err != nil {
			return node.Response{}, err
		}
		return node.Response{Type: node.RespAddBytes, Cid: []byte(cid)}, nil

	case node.ReqCatBytes:
		rc, err := g.sh.Cat(string(req.Cid))
		if err != nil {
			return node.Response{}, err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return node.Response{}, err
		}
		return node.Response{Type: node.RespCatBytes, Data: data}, nil

	case node.ReqRemoveBlock:
		var out struct {
			Hash  string `json:"Hash"`
			Error string `json:"Error"`
		}
		if err := g.sh.Request("block/rm", string(req.Cid)).Exec(ctx, &out); err != nil {
			return node.Response{}, err
		}
		if out.Error != "" {
			return node.Response{}, errors.New(out.Error)
		}
		removed := out.Hash
		if removed == "" {
			removed = string(req.Cid)
		}
		return node.Response{Type: node.RespRemoveBlock, Cid: []byte(removed)}, nil

	case node.ReqInsertPin:
		if err := g.sh.Request("pin/add", string(req.Cid)).Option("recursive", req.Recursive).Exec(ctx, nil); err != nil {
			return node.Response{}, err
		}
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqRemovePin:
		if err := g.sh.Request("pin/rm", string(req.Cid)).Option("recursive", req.Recursive).Exec(ctx, nil); err != nil {
			return node.Response{}, err
		}
		return node.Response{Type: node.RespSuccess}, nil

	case node.ReqFindPeer:
		info, err := g.sh.FindPeer(string(req.PeerID))
		if err != nil {
			return node.Response{}, err
		}
		resp := node.Response{Type: node.RespFindPeer}
		for _, addr := range info.Addrs {
			resp.Addrs = append(resp.Addrs, []byte(addr))
		}
		return resp, nil

	case node.ReqGetProviders:
		return g.findProviders(ctx, string(req.Cid))

	case node.ReqPeers:
		peers, err := g.sh.SwarmPeers(ctx)
		if err != nil {
			return node.Response{}, err
		}
		resp := node.Response{Type: node.RespPeers}
		for _, p := range peers.Peers {
			resp.Peers = append(resp.Peers, []byte(fmt.Sprintf("%s/p2p/%s", p.Addr, p.Peer)))
		}
		return resp, nil

	default:
		return node.Response{}, node.NewError(node.ErrCantCreateRequest,
			fmt.Sprintf("unknown request type %d", req.Type))
	}
}

// findProviders runs routing/findprovs and collects the provider peer ids
// out of the daemon's streaming response.
func (g *gatewayImpl) findProviders(ctx context.Context, cid string) (node.Response, error) {
	httpResp, err := g.sh.Request("routing/findprovs", cid).Option("num-providers", 20).Send(ctx)
	if err != nil {
		return node.Response{}, err
	}
	defer httpResp.Close()
	if httpResp.Error != nil {
		return node.Response{}, httpResp.Error
	}

	// The daemon streams one JSON object per routing event; type 4 events
	// carry providers.
	const providerEvent = 4
	var event struct {
		Type      int `json:"Type"`
		Responses []struct {
			ID string `json:"ID"`
		} `json:"Responses"`
	}

	resp := node.Response{Type: node.RespGetProviders}
	dec := json.NewDecoder(httpResp.Output)
	for {
		if err := dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return node.Response{}, err
		}
		if event.Type != providerEvent {
			continue
		}
		for _, r := range event.Responses {
			resp.Providers = append(resp.Providers, []byte(r.ID))
		}
	}
	return resp, nil
}
