package chain

import (
	"errors"
	"testing"

	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/lqueue"
)

func newTestModule() (*Module, queue.IStore, *EventLog) {
	store := lqueue.NewLocalStore()
	events := NewEventLog(64)
	return NewModule(store, NewSignedOriginAuth(), events), store, events
}

func mustLen(t *testing.T, store queue.IStore, id queue.ID) int {
	t.Helper()
	n, err := store.Len(id)
	if err != nil {
		t.Fatalf("failed to read queue length: %v", err)
	}
	return n
}

func TestSubmissionRequiresSignedOrigin(t *testing.T) {
	m, store, events := newTestModule()

	err := m.Connect("", []byte("/ip4/127.0.0.1/tcp/4001"))
	if err == nil {
		t.Fatal("expected an error for an unsigned origin")
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Code != RetCUnauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if mustLen(t, store, queue.Connection) != 0 {
		t.Error("rejected submission must not be queued")
	}
	if len(events.Recent()) != 0 {
		t.Error("rejected submission must not deposit an event")
	}
}

func TestConnectionQueueDeduplicates(t *testing.T) {
	m, store, _ := newTestModule()
	addr := []byte("/ip4/10.0.0.1/tcp/4001")

	if err := m.Connect("alice", addr); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := m.Connect("bob", addr); err != nil {
		t.Fatalf("duplicate connect must not error: %v", err)
	}
	if got := mustLen(t, store, queue.Connection); got != 1 {
		t.Fatalf("expected 1 pending connection command, got %d", got)
	}

	// A disconnect for the same addr is a different command and is kept.
	if err := m.Disconnect("alice", addr); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if got := mustLen(t, store, queue.Connection); got != 2 {
		t.Fatalf("expected 2 pending connection commands, got %d", got)
	}
}

func TestDataQueueKeepsDuplicates(t *testing.T) {
	m, store, _ := newTestModule()
	data := []byte("hello")

	for i := 0; i < 3; i++ {
		if err := m.AddBytes("alice", data); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if got := mustLen(t, store, queue.Data); got != 3 {
		t.Fatalf("expected 3 pending data commands, got %d", got)
	}
}

func TestHandlersRouteToTheirQueues(t *testing.T) {
	m, store, _ := newTestModule()

	submissions := []struct {
		name   string
		submit func() error
		id     queue.ID
	}{
		{"Connect", func() error { return m.Connect("a", []byte("/ip4/1.2.3.4/tcp/1")) }, queue.Connection},
		{"Disconnect", func() error { return m.Disconnect("a", []byte("/ip4/1.2.3.4/tcp/2")) }, queue.Connection},
		{"AddBytes", func() error { return m.AddBytes("a", []byte("data")) }, queue.Data},
		{"CatBytes", func() error { return m.CatBytes("a", []byte("cid-1")) }, queue.Data},
		{"InsertPin", func() error { return m.InsertPin("a", []byte("cid-2")) }, queue.Data},
		{"RemoveBlock", func() error { return m.RemoveBlock("a", []byte("cid-3")) }, queue.Data},
		{"RemovePin", func() error { return m.RemovePin("a", []byte("cid-4")) }, queue.Data},
		{"DhtFindPeer", func() error { return m.DhtFindPeer("a", []byte("peer-1")) }, queue.Dht},
		{"DhtFindProviders", func() error { return m.DhtFindProviders("a", []byte("cid-5")) }, queue.Dht},
	}

	for _, s := range submissions {
		if err := s.submit(); err != nil {
			t.Fatalf("%s failed: %v", s.name, err)
		}
	}

	if got := mustLen(t, store, queue.Connection); got != 2 {
		t.Errorf("expected 2 connection commands, got %d", got)
	}
	if got := mustLen(t, store, queue.Data); got != 5 {
		t.Errorf("expected 5 data commands, got %d", got)
	}
	if got := mustLen(t, store, queue.Dht); got != 2 {
		t.Errorf("expected 2 dht commands, got %d", got)
	}
}

func TestEventsCarrySubmitter(t *testing.T) {
	m, _, events := newTestModule()

	if err := m.InsertPin("carol", []byte("cid")); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	recent := events.Recent()
	if len(recent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(recent))
	}
	if recent[0].Kind != EventQueuedDataToPin || recent[0].Account != "carol" {
		t.Errorf("unexpected event %+v", recent[0])
	}
}

func TestOnInitializeClearingCadence(t *testing.T) {
	fill := func(m *Module) {
		_ = m.Connect("a", []byte("/ip4/1.2.3.4/tcp/1"))
		_ = m.AddBytes("a", []byte("data"))
		_ = m.DhtFindPeer("a", []byte("peer"))
	}

	t.Run("odd height clears all queues", func(t *testing.T) {
		m, store, _ := newTestModule()
		fill(m)
		m.OnInitialize(3)
		for _, id := range []queue.ID{queue.Connection, queue.Data, queue.Dht} {
			if got := mustLen(t, store, id); got != 0 {
				t.Errorf("queue %s not cleared at odd height, len %d", id, got)
			}
		}
	})

	t.Run("even height keeps the data queue", func(t *testing.T) {
		m, store, _ := newTestModule()
		fill(m)
		m.OnInitialize(4)
		if got := mustLen(t, store, queue.Connection); got != 0 {
			t.Errorf("connection queue not cleared at even height, len %d", got)
		}
		if got := mustLen(t, store, queue.Dht); got != 0 {
			t.Errorf("dht queue not cleared at even height, len %d", got)
		}
		if got := mustLen(t, store, queue.Data); got != 1 {
			t.Errorf("data queue must survive an even height, len %d", got)
		}
	})
}
