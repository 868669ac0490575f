package lqueue

import (
	"sync"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
)

// storeImpl keeps the three queues in process memory. Mutations and snapshots
// are serialized by a single mutex; the queues are small (one block's worth of
// submissions) so contention is not a concern.
type storeImpl struct {
	mu     sync.Mutex
	queues [3][]command.Command
}

// NewLocalStore creates a new single-node queue store.
// This store implementation is not replicated and only works on a single node.
func NewLocalStore() queue.IStore {
	return &storeImpl{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see queue/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Append(id queue.ID, cmd command.Command) error {
	if !id.Valid() {
		return queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[id] = append(s.queues[id], cmd)
	return nil
}

func (s *storeImpl) AppendIfAbsent(id queue.ID, cmd command.Command) (bool, error) {
	if !id.Valid() {
		return false, queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queued := range s.queues[id] {
		if queued.Equal(cmd) {
			return false, nil
		}
	}
	s.queues[id] = append(s.queues[id], cmd)
	return true, nil
}

func (s *storeImpl) Clear(id queue.ID) error {
	if !id.Valid() {
		return queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[id] = nil
	return nil
}

func (s *storeImpl) Snapshot(id queue.ID) ([]command.Command, error) {
	if !id.Valid() {
		return nil, queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Deep copy so the reader never aliases live state.
	cmds := make([]command.Command, len(s.queues[id]))
	for i, cmd := range s.queues[id] {
		payload := make([]byte, len(cmd.Payload))
		copy(payload, cmd.Payload)
		cmds[i] = command.Command{Kind: cmd.Kind, Payload: payload}
	}
	return cmds, nil
}

func (s *storeImpl) Len(id queue.ID) (int, error) {
	if !id.Valid() {
		return 0, queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[id]), nil
}
