package internal

import (
	"fmt"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
)

// OpType defines the possible mutations for the queue state machine.
type OpType uint8

const (
	OpAppend         OpType = iota // Append a command unconditionally.
	OpAppendIfAbsent               // Append a command unless an equal one is queued.
	OpClear                        // Remove all commands from a queue.
)

func (op OpType) String() string {
	switch op {
	case OpAppend:
		return "Append"
	case OpAppendIfAbsent:
		return "AppendIfAbsent"
	case OpClear:
		return "Clear"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// Proposal represents a single mutation proposed to the raft cluster (one
// entry in the raft log).
type Proposal struct {
	Op      OpType
	Queue   queue.ID
	Command command.Command
}

// SizeBytes returns the exact number of bytes needed to serialize this proposal.
func (p *Proposal) SizeBytes() int {
	return 2 + p.Command.SizeBytes()
}

// Serialize encodes a proposal as:
// 1 byte for the operation,
// 1 byte for the queue id,
// 1 byte for the command kind,
// N bytes for the command payload.
func (p *Proposal) Serialize() []byte {
	result := make([]byte, p.SizeBytes())
	result[0] = byte(p.Op)
	result[1] = byte(p.Queue)
	result[2] = byte(p.Command.Kind)
	copy(result[3:], p.Command.Payload)
	return result
}

// Deserialize extracts all Proposal fields from a byte array.
func (p *Proposal) Deserialize(data []byte) error {
	if len(data) < 3 {
		return fmt.Errorf("data too short for proposal")
	}

	op := OpType(data[0])
	if op > OpClear {
		return fmt.Errorf("unknown operation %d", data[0])
	}
	p.Op = op
	p.Queue = queue.ID(data[1])

	return p.Command.Deserialize(data[2:])
}

// --------------------------------------------------------------------------
// Queries (read-only, executed locally on the state machine, not serialized)
// --------------------------------------------------------------------------

// QueryType defines the possible lookups for the queue state machine.
type QueryType uint8

const (
	QueryTSnapshot QueryType = iota // Retrieve a full copy of a queue.
	QueryTLen                       // Retrieve the length of a queue.
)

// Query defines the structure for lookup requests sent via SyncRead.
type Query struct {
	Type  QueryType
	Queue queue.ID
}
