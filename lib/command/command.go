package command

import (
	"bytes"
	"fmt"
)

// Kind defines the possible user intents that can be queued on chain.
type Kind uint8

const (
	KindConnectTo      Kind = iota // Mark a multiaddr as a desired connection target.
	KindDisconnectFrom             // Sever the connection to a multiaddr.
	KindAddBytes                   // Publish arbitrary bytes to the local node.
	KindCatBytes                   // Fetch the data behind a content id.
	KindInsertPin                  // Pin a content id (non-recursively).
	KindRemoveBlock                // Remove a block from the local repository.
	KindRemovePin                  // Unpin a content id (non-recursively).
	KindFindPeer                   // Resolve the addresses of a peer id via the DHT.
	KindGetProviders               // Resolve the providers of a content id via the DHT.
)

func (k Kind) String() string {
	switch k {
	case KindConnectTo:
		return "ConnectTo"
	case KindDisconnectFrom:
		return "DisconnectFrom"
	case KindAddBytes:
		return "AddBytes"
	case KindCatBytes:
		return "CatBytes"
	case KindInsertPin:
		return "InsertPin"
	case KindRemoveBlock:
		return "RemoveBlock"
	case KindRemovePin:
		return "RemovePin"
	case KindFindPeer:
		return "FindPeer"
	case KindGetProviders:
		return "GetProviders"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Valid reports whether k is one of the declared command kinds.
func (k Kind) Valid() bool {
	return k <= KindGetProviders
}

// Command is a single queued intent. The payload is an opaque byte sequence
// (multiaddr, content id or peer id) - structural validation is the node's
// concern, not this layer's.
type Command struct {
	Kind    Kind
	Payload []byte
}

// Equal reports structural equality. It is the basis for the connection
// queue's insertion dedup.
func (c Command) Equal(other Command) bool {
	return c.Kind == other.Kind && bytes.Equal(c.Payload, other.Payload)
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%d bytes)", c.Kind, len(c.Payload))
}

// SizeBytes returns the exact number of bytes needed to serialize this command.
func (c Command) SizeBytes() int {
	return 1 + len(c.Payload)
}

// Serialize encodes a command as: 1 byte kind, N bytes payload.
func (c Command) Serialize() []byte {
	result := make([]byte, c.SizeBytes())
	result[0] = byte(c.Kind)
	copy(result[1:], c.Payload)
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (c *Command) Deserialize(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("data too short for command")
	}
	kind := Kind(data[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown command kind %d", data[0])
	}
	c.Kind = kind
	if len(data) > 1 {
		c.Payload = make([]byte, len(data)-1)
		copy(c.Payload, data[1:])
	} else {
		c.Payload = nil
	}
	return nil
}
