package dqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/dqueue/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	retries = 5
	log     = logger.GetLogger("queue")
)

// storeImpl is the replicated queue store. It encapsulates a Dragonboat
// NodeHost which is used to communicate with the queue state machine, so
// every mutation is totally ordered across the cluster before it is applied.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewDistributedStore creates a new replicated queue store instance which
// uses raft consensus to keep the queues identical on every node.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) queue.IStore {
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// propose serializes a Proposal and sends it via SyncPropose. It returns the
// state machine's result byte (used by AppendIfAbsent) and an error.
func (s *storeImpl) propose(p internal.Proposal) (byte, error) {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := s.nh.SyncPropose(ctx, s.cs, p.Serialize())
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: system busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return 0, queue.NewError(queue.RetCInternalError, err.Error())
		}
		if res.Value != uint64(queue.RetCSuccess) {
			return 0, queue.NewError(queue.RetCode(res.Value), string(res.Data))
		}
		if len(res.Data) != 1 {
			return 0, queue.NewError(queue.RetCInternalError, "state machine returned malformed result")
		}
		return res.Data[0], nil
	}
	return 0, queue.NewError(queue.RetCInternalError, "timeout")
}

// read queries the state machine and attempts to convert the response into
// the expected type R.
func read[R any](s *storeImpl, q internal.Query) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := s.nh.SyncRead(ctx, s.shardID, q)
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: system busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return zero, queue.NewError(queue.RetCInternalError, err.Error())
		}

		casted, ok := res.(R)
		if !ok {
			return zero, queue.NewError(queue.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, queue.NewError(queue.RetCInternalError, "timeout")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see queue/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Append(id queue.ID, cmd command.Command) error {
	if !id.Valid() {
		return queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	_, err := s.propose(internal.Proposal{Op: internal.OpAppend, Queue: id, Command: cmd})
	return err
}

func (s *storeImpl) AppendIfAbsent(id queue.ID, cmd command.Command) (bool, error) {
	if !id.Valid() {
		return false, queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	appended, err := s.propose(internal.Proposal{Op: internal.OpAppendIfAbsent, Queue: id, Command: cmd})
	if err != nil {
		return false, err
	}
	return appended == 1, nil
}

func (s *storeImpl) Clear(id queue.ID) error {
	if !id.Valid() {
		return queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	_, err := s.propose(internal.Proposal{Op: internal.OpClear, Queue: id})
	return err
}

func (s *storeImpl) Snapshot(id queue.ID) ([]command.Command, error) {
	if !id.Valid() {
		return nil, queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	return read[[]command.Command](s, internal.Query{Type: internal.QueryTSnapshot, Queue: id})
}

func (s *storeImpl) Len(id queue.ID) (int, error) {
	if !id.Valid() {
		return 0, queue.NewError(queue.RetCUnknownQueue, id.String())
	}
	return read[int](s, internal.Query{Type: internal.QueryTLen, Queue: id})
}
