// Package testing provides a shared test suite for queue store
// implementations. Every implementation of queue.IStore is expected to pass
// RunQueueStoreTests unchanged.
package testing

import (
	"bytes"
	"testing"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
)

// StoreFactory is a function that creates a fresh instance of a queue store
// implementation.
type StoreFactory func() queue.IStore

// RunQueueStoreTests runs a comprehensive test suite for an IStore
// implementation.
func RunQueueStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Append&Snapshot", func(t *testing.T) {
			testAppendSnapshot(t, factory())
		})

		t.Run("AppendIfAbsent", func(t *testing.T) {
			testAppendIfAbsent(t, factory())
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory())
		})

		t.Run("Independence", func(t *testing.T) {
			testIndependence(t, factory())
		})

		t.Run("SnapshotIsolation", func(t *testing.T) {
			testSnapshotIsolation(t, factory())
		})

		t.Run("UnknownQueue", func(t *testing.T) {
			testUnknownQueue(t, factory())
		})
	})
}

func mustSnapshot(t *testing.T, s queue.IStore, id queue.ID) []command.Command {
	t.Helper()
	cmds, err := s.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot(%s): %v", id, err)
	}
	return cmds
}

func testAppendSnapshot(t *testing.T, s queue.IStore) {
	cmds := []command.Command{
		{Kind: command.KindAddBytes, Payload: []byte("one")},
		{Kind: command.KindCatBytes, Payload: []byte("two")},
		{Kind: command.KindAddBytes, Payload: []byte("one")}, // duplicates allowed
	}
	for _, cmd := range cmds {
		if err := s.Append(queue.Data, cmd); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got := mustSnapshot(t, s, queue.Data)
	if len(got) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(got))
	}
	// Insertion order equals submission order.
	for i := range cmds {
		if !got[i].Equal(cmds[i]) {
			t.Errorf("command %d: got %s, want %s", i, got[i], cmds[i])
		}
	}

	if n, err := s.Len(queue.Data); err != nil || n != len(cmds) {
		t.Errorf("Len = %d, %v; want %d, nil", n, err, len(cmds))
	}
}

func testAppendIfAbsent(t *testing.T, s queue.IStore) {
	connect := command.Command{Kind: command.KindConnectTo, Payload: []byte("/ip4/10.0.0.1/tcp/4001")}
	disconnect := command.Command{Kind: command.KindDisconnectFrom, Payload: []byte("/ip4/10.0.0.1/tcp/4001")}

	if appended, err := s.AppendIfAbsent(queue.Connection, connect); err != nil || !appended {
		t.Fatalf("first AppendIfAbsent = %v, %v; want true, nil", appended, err)
	}
	if appended, err := s.AppendIfAbsent(queue.Connection, connect); err != nil || appended {
		t.Fatalf("second AppendIfAbsent = %v, %v; want false, nil", appended, err)
	}
	// A distinct variant with the same payload is not a duplicate.
	if appended, err := s.AppendIfAbsent(queue.Connection, disconnect); err != nil || !appended {
		t.Fatalf("disconnect AppendIfAbsent = %v, %v; want true, nil", appended, err)
	}

	if got := mustSnapshot(t, s, queue.Connection); len(got) != 2 {
		t.Errorf("expected 2 commands after dedup, got %d", len(got))
	}
}

func testClear(t *testing.T, s queue.IStore) {
	if err := s.Append(queue.Dht, command.Command{Kind: command.KindFindPeer, Payload: []byte("peer")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Clear(queue.Dht); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := mustSnapshot(t, s, queue.Dht); len(got) != 0 {
		t.Errorf("expected empty queue after Clear, got %d commands", len(got))
	}
	// Clearing an empty queue is a no-op, not an error.
	if err := s.Clear(queue.Dht); err != nil {
		t.Errorf("Clear on empty queue: %v", err)
	}
}

func testIndependence(t *testing.T, s queue.IStore) {
	if err := s.Append(queue.Data, command.Command{Kind: command.KindAddBytes, Payload: []byte("data")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(queue.Dht, command.Command{Kind: command.KindGetProviders, Payload: []byte("cid")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Clear(queue.Dht); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := mustSnapshot(t, s, queue.Data); len(got) != 1 {
		t.Errorf("clearing the dht queue must not touch the data queue")
	}
}

func testSnapshotIsolation(t *testing.T, s queue.IStore) {
	if err := s.Append(queue.Data, command.Command{Kind: command.KindAddBytes, Payload: []byte("before")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap := mustSnapshot(t, s, queue.Data)

	// Mutations after the snapshot must not be visible in it.
	if err := s.Append(queue.Data, command.Command{Kind: command.KindAddBytes, Payload: []byte("after")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("snapshot grew after a later append")
	}

	// Mutating the snapshot's payloads must not affect the store.
	snap[0].Payload[0] = 'X'
	fresh := mustSnapshot(t, s, queue.Data)
	if !bytes.Equal(fresh[0].Payload, []byte("before")) {
		t.Error("snapshot aliases live store state")
	}
}

func testUnknownQueue(t *testing.T, s queue.IStore) {
	bad := queue.ID(42)
	if err := s.Append(bad, command.Command{}); err == nil {
		t.Error("Append on unknown queue must fail")
	}
	if _, err := s.Snapshot(bad); err == nil {
		t.Error("Snapshot on unknown queue must fail")
	}
	if err := s.Clear(bad); err == nil {
		t.Error("Clear on unknown queue must fail")
	}
}
