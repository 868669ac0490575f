// Package offchain implements the dispatch worker that drains the command
// queues against the local node after each block.
package offchain

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/node"
	"github.com/pcrawfurd/dIPFS/lib/queue"
)

var log = logger.GetLogger("offchain")

const (
	// CommandDeadline bounds every queued command sent to the node.
	CommandDeadline = 1000 * time.Millisecond
	// MetadataDeadline bounds the periodic node metadata probe.
	MetadataDeadline = 200 * time.Millisecond
	// MetadataInterval is the block cadence of the metadata probe.
	MetadataInterval = 5
)

// Worker drains the command queues against a node gateway. It only ever
// reads queue snapshots; clearing is the chain's job.
type Worker struct {
	queues queue.IReader
	gw     node.IGateway
}

// NewWorker creates a worker reading from the given queues and dispatching
// against the given gateway.
func NewWorker(queues queue.IReader, gw node.IGateway) *Worker {
	return &Worker{queues: queues, gw: gw}
}

// --------------------------------------------------------------------------
// Block Hook
// --------------------------------------------------------------------------

// Batch holds the frozen queue contents of one finalized block. Data is only
// populated at odd heights, matching the data pass cadence.
type Batch struct {
	Height     uint64
	Connection []command.Command
	Dht        []command.Command
	Data       []command.Command
}

// Collect freezes the queues the passes at the given height will drain. It
// must run before the next block's initialization clears the queues; the
// returned batch can then be dispatched off the block production path.
func (w *Worker) Collect(height uint64) Batch {
	b := Batch{Height: height}
	b.Connection = w.snapshot(queue.Connection)
	b.Dht = w.snapshot(queue.Dht)
	if height%2 == 1 {
		b.Data = w.snapshot(queue.Data)
	}
	return b
}

// Dispatch executes the offchain passes over a collected batch. The
// connection and dht queues are drained every block, the data queue only at
// odd heights, and the node metadata probe runs every fifth block. The
// passes are independent: an error aborts only its own pass and is logged
// here, except the metadata probe's, which is returned to the caller.
func (w *Worker) Dispatch(b Batch) error {
	if err := w.dispatch(queue.Connection, b.Connection); err != nil {
		log.Errorf("IPFS: connection pass aborted: %v", err)
	}
	if err := w.dispatch(queue.Dht, b.Dht); err != nil {
		log.Errorf("IPFS: dht pass aborted: %v", err)
	}
	if b.Height%2 == 1 {
		if n := len(b.Data); n > 0 {
			log.Infof("IPFS: %d entr%s in the data queue", n, plural(n, "y", "ies"))
		}
		if err := w.dispatch(queue.Data, b.Data); err != nil {
			log.Errorf("IPFS: data pass aborted: %v", err)
		}
	}
	if b.Height%MetadataInterval == 0 {
		if err := w.metadataPass(); err != nil {
			return fmt.Errorf("IPFS: metadata probe failed: %w", err)
		}
	}
	return nil
}

// Run collects and dispatches in one step, for callers that do not need to
// separate the freeze from the drain.
func (w *Worker) Run(height uint64) error {
	return w.Dispatch(w.Collect(height))
}

func (w *Worker) snapshot(id queue.ID) []command.Command {
	cmds, err := w.queues.Snapshot(id)
	if err != nil {
		log.Errorf("IPFS: failed to read the %s queue: %v", id, err)
		return nil
	}
	return cmds
}

// metadataPass asks the node who it is connected to. It runs on a much
// tighter deadline than the command passes and its error is surfaced.
func (w *Worker) metadataPass() error {
	resp, err := w.gw.Send(node.NewPeersRequest(), time.Now().Add(MetadataDeadline))
	if err != nil {
		return err
	}
	log.Infof("IPFS: connected to %d peers", len(resp.Peers))
	return nil
}

// dispatch sends every command of a snapshot to the node, each under its own
// deadline. Per-command failures are counted and logged; only a protocol
// violation aborts the pass.
func (w *Worker) dispatch(id queue.ID, cmds []command.Command) error {
	for _, cmd := range cmds {
		req, err := requestFor(cmd)
		if err != nil {
			log.Errorf("IPFS: dropping bad %s command: %v", id, err)
			failures(id).Inc()
			continue
		}

		resp, err := w.gw.Send(req, time.Now().Add(CommandDeadline))
		if err != nil {
			if node.IsCode(err, node.ErrProtocolViolation) {
				log.Errorf("IPFS: node broke the response protocol for %s: %v", cmd.Kind, err)
				return err
			}
			log.Errorf("IPFS: %s failed: %v", cmd.Kind, err)
			failures(id).Inc()
			continue
		}

		logOutcome(cmd, resp)
		dispatched(id).Inc()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// requestFor translates a queued command into a node request. Pins taken via
// the queue are always direct (non recursive).
func requestFor(cmd command.Command) (node.Request, error) {
	switch cmd.Kind {
	case command.KindConnectTo:
		return node.NewConnectRequest(cmd.Payload), nil
	case command.KindDisconnectFrom:
		return node.NewDisconnectRequest(cmd.Payload), nil
	case command.KindAddBytes:
		return node.NewAddBytesRequest(cmd.Payload), nil
	case command.KindCatBytes:
		return node.NewCatBytesRequest(cmd.Payload), nil
	case command.KindInsertPin:
		return node.NewInsertPinRequest(cmd.Payload, false), nil
	case command.KindRemoveBlock:
		return node.NewRemoveBlockRequest(cmd.Payload), nil
	case command.KindRemovePin:
		return node.NewRemovePinRequest(cmd.Payload, false), nil
	case command.KindFindPeer:
		return node.NewFindPeerRequest(cmd.Payload), nil
	case command.KindGetProviders:
		return node.NewGetProvidersRequest(cmd.Payload), nil
	default:
		return node.Request{}, fmt.Errorf("no request for command kind %d", uint8(cmd.Kind))
	}
}

func logOutcome(cmd command.Command, resp node.Response) {
	switch cmd.Kind {
	case command.KindConnectTo:
		log.Infof("IPFS: connected to %s", cmd.Payload)
	case command.KindDisconnectFrom:
		log.Infof("IPFS: disconnected from %s", cmd.Payload)
	case command.KindAddBytes:
		log.Infof("IPFS: added data with cid %s", resp.Cid)
	case command.KindCatBytes:
		log.Infof("IPFS: got data for cid %s: %s", cmd.Payload, printable(resp.Data))
	case command.KindInsertPin:
		log.Infof("IPFS: pinned %s", cmd.Payload)
	case command.KindRemoveBlock:
		log.Infof("IPFS: removed block %s", resp.Cid)
	case command.KindRemovePin:
		log.Infof("IPFS: unpinned %s", cmd.Payload)
	case command.KindFindPeer:
		log.Infof("IPFS: found %d addresses for peer %s", len(resp.Addrs), cmd.Payload)
	case command.KindGetProviders:
		log.Infof("IPFS: found %d providers for cid %s", len(resp.Providers), cmd.Payload)
	}
}

// printable renders fetched content as text when it is valid UTF-8 and falls
// back to hex otherwise.
func printable(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return hex.EncodeToString(data)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func dispatched(id queue.ID) *metrics.Counter {
	return metrics.GetOrCreateCounter(
		fmt.Sprintf(`dipfs_offchain_commands_total{queue=%q,result="ok"}`, id))
}

func failures(id queue.ID) *metrics.Counter {
	return metrics.GetOrCreateCounter(
		fmt.Sprintf(`dipfs_offchain_commands_total{queue=%q,result="error"}`, id))
}
