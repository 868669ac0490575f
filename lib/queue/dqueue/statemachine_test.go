package dqueue

import (
	"bytes"
	"testing"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/dqueue/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// apply runs a single proposal through the state machine and returns its result.
func apply(t *testing.T, fsm *QueueStateMachine, p internal.Proposal) sm.Result {
	t.Helper()
	entries, err := fsm.Update([]sm.Entry{{Index: 1, Cmd: p.Serialize()}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	return entries[0].Result
}

func snapshot(t *testing.T, fsm *QueueStateMachine, id queue.ID) []command.Command {
	t.Helper()
	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTSnapshot, Queue: id})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	return res.([]command.Command)
}

func TestStateMachineAppendAndDedup(t *testing.T) {
	fsm := &QueueStateMachine{}
	connect := command.Command{Kind: command.KindConnectTo, Payload: []byte("/ip4/10.0.0.1/tcp/4001")}

	res := apply(t, fsm, internal.Proposal{Op: internal.OpAppendIfAbsent, Queue: queue.Connection, Command: connect})
	if res.Value != uint64(queue.RetCSuccess) || !bytes.Equal(res.Data, []byte{1}) {
		t.Fatalf("first append: result %v", res)
	}

	res = apply(t, fsm, internal.Proposal{Op: internal.OpAppendIfAbsent, Queue: queue.Connection, Command: connect})
	if res.Value != uint64(queue.RetCSuccess) || !bytes.Equal(res.Data, []byte{0}) {
		t.Fatalf("duplicate append: result %v", res)
	}

	if got := snapshot(t, fsm, queue.Connection); len(got) != 1 {
		t.Errorf("expected one queued command after dedup, got %d", len(got))
	}
}

func TestStateMachineRejectsBadProposals(t *testing.T) {
	fsm := &QueueStateMachine{}

	entries, err := fsm.Update([]sm.Entry{{Index: 1, Cmd: nil}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if entries[0].Result.Value != uint64(queue.RetCBadCommand) {
		t.Errorf("empty proposal: got code %d, want RetCBadCommand", entries[0].Result.Value)
	}

	bad := internal.Proposal{Op: internal.OpAppend, Queue: queue.ID(9), Command: command.Command{Kind: command.KindAddBytes}}
	res := apply(t, fsm, bad)
	if res.Value != uint64(queue.RetCUnknownQueue) {
		t.Errorf("unknown queue: got code %d, want RetCUnknownQueue", res.Value)
	}
}

func TestStateMachineSnapshotRoundTrip(t *testing.T) {
	fsm := &QueueStateMachine{}
	apply(t, fsm, internal.Proposal{Op: internal.OpAppend, Queue: queue.Data, Command: command.Command{Kind: command.KindAddBytes, Payload: []byte("payload")}})
	apply(t, fsm, internal.Proposal{Op: internal.OpAppend, Queue: queue.Dht, Command: command.Command{Kind: command.KindFindPeer, Payload: []byte("peer")}})

	var buf bytes.Buffer
	if err := fsm.SaveSnapshot(nil, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	restored := &QueueStateMachine{}
	if err := restored.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot: %v", err)
	}

	for _, id := range []queue.ID{queue.Connection, queue.Data, queue.Dht} {
		want := snapshot(t, fsm, id)
		got := snapshot(t, restored, id)
		if len(got) != len(want) {
			t.Fatalf("queue %s: got %d commands, want %d", id, len(got), len(want))
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("queue %s command %d: got %s, want %s", id, i, got[i], want[i])
			}
		}
	}
}

func TestProposalRoundTrip(t *testing.T) {
	p := internal.Proposal{
		Op:      internal.OpAppendIfAbsent,
		Queue:   queue.Connection,
		Command: command.Command{Kind: command.KindConnectTo, Payload: []byte("/dns4/node/tcp/4001")},
	}

	var got internal.Proposal
	if err := got.Deserialize(p.Serialize()); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Op != p.Op || got.Queue != p.Queue || !got.Command.Equal(p.Command) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, p)
	}
}
