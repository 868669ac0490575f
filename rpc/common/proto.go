package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Origin  string `json:"origin,omitempty"`  // Submitter account, used for all submission requests
	Payload []byte `json:"payload,omitempty"` // Multiaddr, cid, raw data or peer id depending on the type
	Queue   uint8  `json:"queue,omitempty"`   // Queue id, used for QueueLen and QueueLs

	// Response only fields
	Count uint64   `json:"count,omitempty"` // Used for: QueueLen responses
	Items [][]byte `json:"items,omitempty"` // Used for: QueueLs responses (serialized commands)
	Err   string   `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewConnectRequest creates a new Connect submission request
func NewConnectRequest(origin string, addr []byte) *Message {
	return &Message{MsgType: MsgTIpfsConnect, Origin: origin, Payload: addr}
}

// NewDisconnectRequest creates a new Disconnect submission request
func NewDisconnectRequest(origin string, addr []byte) *Message {
	return &Message{MsgType: MsgTIpfsDisconnect, Origin: origin, Payload: addr}
}

// NewAddBytesRequest creates a new AddBytes submission request
func NewAddBytesRequest(origin string, data []byte) *Message {
	return &Message{MsgType: MsgTIpfsAddBytes, Origin: origin, Payload: data}
}

// NewCatBytesRequest creates a new CatBytes submission request
func NewCatBytesRequest(origin string, cid []byte) *Message {
	return &Message{MsgType: MsgTIpfsCatBytes, Origin: origin, Payload: cid}
}

// NewInsertPinRequest creates a new InsertPin submission request
func NewInsertPinRequest(origin string, cid []byte) *Message {
	return &Message{MsgType: MsgTIpfsInsertPin, Origin: origin, Payload: cid}
}

// NewRemoveBlockRequest creates a new RemoveBlock submission request
func NewRemoveBlockRequest(origin string, cid []byte) *Message {
	return &Message{MsgType: MsgTIpfsRemoveBlock, Origin: origin, Payload: cid}
}

// NewRemovePinRequest creates a new RemovePin submission request
func NewRemovePinRequest(origin string, cid []byte) *Message {
	return &Message{MsgType: MsgTIpfsRemovePin, Origin: origin, Payload: cid}
}

// NewFindPeerRequest creates a new FindPeer submission request
func NewFindPeerRequest(origin string, peerID []byte) *Message {
	return &Message{MsgType: MsgTIpfsFindPeer, Origin: origin, Payload: peerID}
}

// NewFindProvidersRequest creates a new FindProviders submission request
func NewFindProvidersRequest(origin string, cid []byte) *Message {
	return &Message{MsgType: MsgTIpfsFindProviders, Origin: origin, Payload: cid}
}

// NewSubmitResponse creates the acknowledgement for a submission request
func NewSubmitResponse(msgType MessageType, err error) *Message {
	msg := &Message{MsgType: msgType}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewQueueLenRequest creates a new QueueLen request
func NewQueueLenRequest(queue uint8) *Message {
	return &Message{MsgType: MsgTQueueLen, Queue: queue}
}

// NewQueueLenResponse creates a new QueueLen response
func NewQueueLenResponse(count uint64, err error) *Message {
	msg := &Message{MsgType: MsgTQueueLen, Count: count}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewQueueLsRequest creates a new QueueLs request
func NewQueueLsRequest(queue uint8) *Message {
	return &Message{MsgType: MsgTQueueLs, Queue: queue}
}

// NewQueueLsResponse creates a new QueueLs response. The items are the
// pending commands in their wire encoding.
func NewQueueLsResponse(items [][]byte, err error) *Message {
	msg := &Message{MsgType: MsgTQueueLs, Items: items}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{MsgType: MsgTCustom, Meta: meta}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{MsgType: MsgTCustom, Meta: meta}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTIpfsConnect:
		return "connect"
	case MsgTIpfsDisconnect:
		return "disconnect"
	case MsgTIpfsAddBytes:
		return "add"
	case MsgTIpfsCatBytes:
		return "cat"
	case MsgTIpfsInsertPin:
		return "pin"
	case MsgTIpfsRemoveBlock:
		return "rm-block"
	case MsgTIpfsRemovePin:
		return "unpin"
	case MsgTIpfsFindPeer:
		return "find-peer"
	case MsgTIpfsFindProviders:
		return "find-providers"
	case MsgTQueueLen:
		return "queue-len"
	case MsgTQueueLs:
		return "queue-ls"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "connect":
		*t = MsgTIpfsConnect
	case "disconnect":
		*t = MsgTIpfsDisconnect
	case "add":
		*t = MsgTIpfsAddBytes
	case "cat":
		*t = MsgTIpfsCatBytes
	case "pin":
		*t = MsgTIpfsInsertPin
	case "rm-block":
		*t = MsgTIpfsRemoveBlock
	case "unpin":
		*t = MsgTIpfsRemovePin
	case "find-peer":
		*t = MsgTIpfsFindPeer
	case "find-providers":
		*t = MsgTIpfsFindProviders
	case "queue-len":
		*t = MsgTQueueLen
	case "queue-ls":
		*t = MsgTQueueLs
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Submission operations (queued user intents)

	MsgTIpfsConnect       // Queue a connection to a multiaddr
	MsgTIpfsDisconnect    // Queue a disconnect from a multiaddr
	MsgTIpfsAddBytes      // Queue raw data to be added
	MsgTIpfsCatBytes      // Queue a content fetch for a cid
	MsgTIpfsInsertPin     // Queue a pin for a cid
	MsgTIpfsRemoveBlock   // Queue a block removal for a cid
	MsgTIpfsRemovePin     // Queue an unpin for a cid
	MsgTIpfsFindPeer      // Queue a dht peer lookup
	MsgTIpfsFindProviders // Queue a dht provider lookup

	// Queue inspection operations

	MsgTQueueLen // Read the length of a queue
	MsgTQueueLs  // List the pending commands of a queue

	// Custom operations

	MsgTCustom // Custom operation type
)
