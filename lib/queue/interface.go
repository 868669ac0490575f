package queue

import (
	"fmt"

	"github.com/pcrawfurd/dIPFS/lib/command"
)

// --------------------------------------------------------------------------
// Queue Identifiers
// --------------------------------------------------------------------------

// ID names one of the three on-chain command queues.
type ID uint8

const (
	Connection ID = iota // Connect/disconnect targets.
	Data                 // Bytes to publish or obtain on the node.
	Dht                  // Requests to the DHT.
)

func (id ID) String() string {
	switch id {
	case Connection:
		return "connection"
	case Data:
		return "data"
	case Dht:
		return "dht"
	default:
		return fmt.Sprintf("unknown(%d)", id)
	}
}

// Valid reports whether id names a declared queue.
func (id ID) Valid() bool {
	return id <= Dht
}

// For returns the queue a command kind is routed to.
func For(k command.Kind) ID {
	switch k {
	case command.KindConnectTo, command.KindDisconnectFrom:
		return Connection
	case command.KindFindPeer, command.KindGetProviders:
		return Dht
	default:
		return Data
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IReader is the read-only view of the queue store handed to the offchain
// side. It never observes partial state: Snapshot returns an independent
// copy of the queue at the moment of the call.
type IReader interface {
	// Snapshot returns a copy of the queue contents in submission order.
	Snapshot(id ID) (cmds []command.Command, err error)
	// Len returns the current number of commands in the queue.
	Len(id ID) (n int, err error)
}

// IStore is the full interface used by the consensus-critical side. All
// mutation goes through it; readers only ever get snapshots.
type IStore interface {
	IReader

	// Append appends a command to the queue unconditionally.
	Append(id ID, cmd command.Command) (err error)
	// AppendIfAbsent appends a command only if no structurally equal command
	// is already queued. It reports whether the command was appended.
	AppendIfAbsent(id ID, cmd command.Command) (appended bool, err error)
	// Clear removes all commands from the queue.
	Clear(id ID) (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// RetCode classifies queue store failures.
type RetCode uint64

const (
	RetCSuccess       RetCode = iota // Operation executed successfully.
	RetCInternalError                // Operation failed due to an internal error.
	RetCUnknownQueue                 // The queue id is not one of the three declared queues.
	RetCBadCommand                   // The command could not be decoded by the state machine.
)

// Error wraps a return code and a message.
type Error struct {
	Code RetCode
	Msg  string
}

func (e *Error) Error() string {
	code := ""
	switch e.Code {
	case RetCInternalError:
		code = "InternalError"
	case RetCUnknownQueue:
		code = "UnknownQueue"
	case RetCBadCommand:
		code = "BadCommand"
	default:
		code = "Unknown"
	}
	return fmt.Sprintf("QueueStoreError (code %s): %s", code, e.Msg)
}

// NewError creates a new queue store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}
