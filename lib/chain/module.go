// Package chain implements the onchain side of the bridge: the submission
// handlers that validate user intents and append them to the command queues,
// and the per-block lifecycle hook that resets the queues.
package chain

import (
	"fmt"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/pcrawfurd/dIPFS/lib/command"
	"github.com/pcrawfurd/dIPFS/lib/queue"
)

var log = logger.GetLogger("chain")

// --------------------------------------------------------------------------
// Error Handling
// --------------------------------------------------------------------------

// RetCode is the result of a submission.
type RetCode uint8

const (
	RetCSuccess RetCode = iota
	RetCUnauthorized
	RetCInternalError
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCUnauthorized:
		return "Unauthorized"
	case RetCInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error is returned by the submission handlers.
type Error struct {
	Code RetCode
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// --------------------------------------------------------------------------
// Module
// --------------------------------------------------------------------------

// Module owns the submission surface of the bridge. Every handler follows
// the same shape: authenticate the origin, append the command to its queue,
// deposit one event naming the submitter.
type Module struct {
	queues queue.IStore
	auth   IAuthenticator
	events IEventSink
}

// NewModule wires the submission handlers to a queue store, an
// authenticator and an event sink.
func NewModule(queues queue.IStore, auth IAuthenticator, events IEventSink) *Module {
	return &Module{queues: queues, auth: auth, events: events}
}

// --------------------------------------------------------------------------
// Block Lifecycle
// --------------------------------------------------------------------------

// OnInitialize resets the queues at the start of the block at the given
// height and returns the weight consumed. The connection and dht queues are
// cleared every block; the data queue only at odd heights.
func (m *Module) OnInitialize(height uint64) uint64 {
	if err := m.queues.Clear(queue.Connection); err != nil {
		log.Errorf("failed to clear connection queue at height %d: %v", height, err)
	}
	if height%2 == 1 {
		if err := m.queues.Clear(queue.Data); err != nil {
			log.Errorf("failed to clear data queue at height %d: %v", height, err)
		}
	}
	if err := m.queues.Clear(queue.Dht); err != nil {
		log.Errorf("failed to clear dht queue at height %d: %v", height, err)
	}
	return 0
}

// --------------------------------------------------------------------------
// Submission Handlers
// --------------------------------------------------------------------------

// Connect queues a connection to the given multiaddr. Duplicate pending
// connection commands are dropped.
func (m *Module) Connect(origin string, addr []byte) error {
	return m.submit(origin, command.KindConnectTo, addr, EventConnectionRequested)
}

// Disconnect queues a disconnect from the given multiaddr. Duplicate pending
// disconnect commands are dropped.
func (m *Module) Disconnect(origin string, addr []byte) error {
	return m.submit(origin, command.KindDisconnectFrom, addr, EventDisconnectRequested)
}

// AddBytes queues raw data to be added to the node.
func (m *Module) AddBytes(origin string, data []byte) error {
	return m.submit(origin, command.KindAddBytes, data, EventQueuedDataToAdd)
}

// CatBytes queues a content fetch for the given cid.
func (m *Module) CatBytes(origin string, cid []byte) error {
	return m.submit(origin, command.KindCatBytes, cid, EventQueuedDataToCat)
}

// InsertPin queues a pin of the given cid.
func (m *Module) InsertPin(origin string, cid []byte) error {
	return m.submit(origin, command.KindInsertPin, cid, EventQueuedDataToPin)
}

// RemoveBlock queues a block removal for the given cid.
func (m *Module) RemoveBlock(origin string, cid []byte) error {
	return m.submit(origin, command.KindRemoveBlock, cid, EventQueuedDataToRemove)
}

// RemovePin queues an unpin of the given cid.
func (m *Module) RemovePin(origin string, cid []byte) error {
	return m.submit(origin, command.KindRemovePin, cid, EventQueuedDataToUnpin)
}

// DhtFindPeer queues a peer lookup for the given peer id.
func (m *Module) DhtFindPeer(origin string, peerID []byte) error {
	return m.submit(origin, command.KindFindPeer, peerID, EventFindPeerIssued)
}

// DhtFindProviders queues a provider lookup for the given cid.
func (m *Module) DhtFindProviders(origin string, cid []byte) error {
	return m.submit(origin, command.KindGetProviders, cid, EventFindProvidersIssued)
}

// submit is the shared handler body. Only the connection queue deduplicates
// pending commands; the data and dht queues keep every submission.
func (m *Module) submit(origin string, kind command.Kind, payload []byte, event EventKind) error {
	account, err := m.auth.Authenticate(origin)
	if err != nil {
		return err
	}

	cmd := command.Command{Kind: kind, Payload: payload}
	id := queue.For(kind)
	if id == queue.Connection {
		_, err = m.queues.AppendIfAbsent(id, cmd)
	} else {
		err = m.queues.Append(id, cmd)
	}
	if err != nil {
		return NewError(RetCInternalError, fmt.Sprintf("failed to queue %s: %v", kind, err))
	}

	m.events.Deposit(Event{Kind: event, Account: account})
	return nil
}
