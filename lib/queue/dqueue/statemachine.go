package dqueue

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/dqueue/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// QueueStateMachine is a state machine implementation for Dragonboat RAFT.
// It holds the three command queues and applies queue mutations from the
// raft log, which keeps the queues identical on every replica.
type QueueStateMachine struct {
	replicaID uint64
	shardID   uint64

	mu     sync.RWMutex
	queues [3][]command.Command
}

// CreateStateMachineFactory returns a function used by dragonboat to create
// a new state machine for a node host.
func CreateStateMachineFactory() func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &QueueStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
		}
	}
}

// Lookup handles read-only queries against the queues.
func (fsm *QueueStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, queue.NewError(queue.RetCInternalError, fmt.Sprintf("invalid query type: %T", itf))
	}
	if !q.Queue.Valid() {
		return nil, queue.NewError(queue.RetCUnknownQueue, q.Queue.String())
	}

	fsm.mu.RLock()
	defer fsm.mu.RUnlock()

	switch q.Type {
	case internal.QueryTSnapshot:
		cmds := make([]command.Command, len(fsm.queues[q.Queue]))
		for i, cmd := range fsm.queues[q.Queue] {
			payload := make([]byte, len(cmd.Payload))
			copy(payload, cmd.Payload)
			cmds[i] = command.Command{Kind: cmd.Kind, Payload: payload}
		}
		return cmds, nil
	case internal.QueryTLen:
		return len(fsm.queues[q.Queue]), nil
	default:
		return nil, queue.NewError(queue.RetCInternalError, fmt.Sprintf("unknown query type: %d", q.Type))
	}
}

// Update applies queue mutations from the raft log.
func (fsm *QueueStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	fsm.mu.Lock()
	defer fsm.mu.Unlock()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCBadCommand), Data: []byte("empty proposal ignored")}
			continue
		}

		p := internal.Proposal{}
		if err := p.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCBadCommand), Data: []byte(fmt.Sprintf("failed to deserialize proposal: %v", err))}
			continue
		}
		if !p.Queue.Valid() {
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCUnknownQueue), Data: []byte(p.Queue.String())}
			continue
		}

		switch p.Op {
		case internal.OpAppend:
			fsm.queues[p.Queue] = append(fsm.queues[p.Queue], p.Command)
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCSuccess), Data: []byte{1}}
		case internal.OpAppendIfAbsent:
			appended := byte(1)
			for _, queued := range fsm.queues[p.Queue] {
				if queued.Equal(p.Command) {
					appended = 0
					break
				}
			}
			if appended == 1 {
				fsm.queues[p.Queue] = append(fsm.queues[p.Queue], p.Command)
			}
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCSuccess), Data: []byte{appended}}
		case internal.OpClear:
			fsm.queues[p.Queue] = nil
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCSuccess), Data: []byte{1}}
		default:
			entries[idx].Result = sm.Result{Value: uint64(queue.RetCBadCommand), Data: []byte(fmt.Sprintf("unknown operation: %s", p.Op))}
		}
	}

	return entries, nil
}

// PrepareSnapshot is not used, the queues are copied under lock in SaveSnapshot.
func (fsm *QueueStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot writes all three queues to the writer as length-prefixed
// serialized commands.
func (fsm *QueueStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	fsm.mu.RLock()
	defer fsm.mu.RUnlock()

	var buf [4]byte
	for _, q := range fsm.queues {
		binary.BigEndian.PutUint32(buf[:], uint32(len(q)))
		if _, err := writer.Write(buf[:]); err != nil {
			return err
		}
		for _, cmd := range q {
			data := cmd.Serialize()
			binary.BigEndian.PutUint32(buf[:], uint32(len(data)))
			if _, err := writer.Write(buf[:]); err != nil {
				return err
			}
			if _, err := writer.Write(data); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecoverFromSnapshot restores all three queues from a snapshot.
func (fsm *QueueStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()

	var buf [4]byte
	for i := range fsm.queues {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		n := binary.BigEndian.Uint32(buf[:])
		cmds := make([]command.Command, 0, n)
		for j := uint32(0); j < n; j++ {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return err
			}
			data := make([]byte, binary.BigEndian.Uint32(buf[:]))
			if _, err := io.ReadFull(r, data); err != nil {
				return err
			}
			cmd := command.Command{}
			if err := cmd.Deserialize(data); err != nil {
				return fmt.Errorf("snapshot contains invalid command: %w", err)
			}
			cmds = append(cmds, cmd)
		}
		fsm.queues[i] = cmds
	}
	return nil
}

// Close performs any necessary cleanup.
func (fsm *QueueStateMachine) Close() error {
	return nil
}
