// Package node defines the typed request/response protocol spoken with the
// local IPFS node, and the gateway interface used by the offchain worker to
// issue deadline-bounded requests against it.
package node

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Request Definition
// --------------------------------------------------------------------------

// RequestType defines the operations the local node understands.
type RequestType uint8

const (
	ReqConnect      RequestType = iota // Connect to a multiaddr.
	ReqDisconnect                      // Disconnect from a multiaddr.
	ReqAddBytes                        // Publish bytes, returns the resulting content id.
	ReqCatBytes                        // Fetch the bytes behind a content id.
	ReqRemoveBlock                     // Remove a block from the repository.
	ReqInsertPin                       // Pin a content id.
	ReqRemovePin                       // Unpin a content id.
	ReqFindPeer                        // Resolve the addresses of a peer id.
	ReqGetProviders                    // Resolve the providers of a content id.
	ReqPeers                           // List currently connected peers.
)

func (t RequestType) String() string {
	switch t {
	case ReqConnect:
		return "Connect"
	case ReqDisconnect:
		return "Disconnect"
	case ReqAddBytes:
		return "AddBytes"
	case ReqCatBytes:
		return "CatBytes"
	case ReqRemoveBlock:
		return "RemoveBlock"
	case ReqInsertPin:
		return "InsertPin"
	case ReqRemovePin:
		return "RemovePin"
	case ReqFindPeer:
		return "FindPeer"
	case ReqGetProviders:
		return "GetProviders"
	case ReqPeers:
		return "Peers"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Request is a single typed request to the local node. Which fields are used
// depends on the request type.
type Request struct {
	Type RequestType

	Addr      []byte // Used for: Connect, Disconnect
	Data      []byte // Used for: AddBytes
	Cid       []byte // Used for: CatBytes, RemoveBlock, InsertPin, RemovePin, GetProviders
	PeerID    []byte // Used for: FindPeer
	Recursive bool   // Used for: InsertPin, RemovePin (the queue driver always sends false)
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewConnectRequest creates a new Connect request.
func NewConnectRequest(addr []byte) Request {
	return Request{Type: ReqConnect, Addr: addr}
}

// NewDisconnectRequest creates a new Disconnect request.
func NewDisconnectRequest(addr []byte) Request {
	return Request{Type: ReqDisconnect, Addr: addr}
}

// NewAddBytesRequest creates a new AddBytes request.
func NewAddBytesRequest(data []byte) Request {
	return Request{Type: ReqAddBytes, Data: data}
}

// NewCatBytesRequest creates a new CatBytes request.
func NewCatBytesRequest(cid []byte) Request {
	return Request{Type: ReqCatBytes, Cid: cid}
}

// NewRemoveBlockRequest creates a new RemoveBlock request.
func NewRemoveBlockRequest(cid []byte) Request {
	return Request{Type: ReqRemoveBlock, Cid: cid}
}

// NewInsertPinRequest creates a new InsertPin request.
func NewInsertPinRequest(cid []byte, recursive bool) Request {
	return Request{Type: ReqInsertPin, Cid: cid, Recursive: recursive}
}

// NewRemovePinRequest creates a new RemovePin request.
func NewRemovePinRequest(cid []byte, recursive bool) Request {
	return Request{Type: ReqRemovePin, Cid: cid, Recursive: recursive}
}

// NewFindPeerRequest creates a new FindPeer request.
func NewFindPeerRequest(peerID []byte) Request {
	return Request{Type: ReqFindPeer, PeerID: peerID}
}

// NewGetProvidersRequest creates a new GetProviders request.
func NewGetProvidersRequest(cid []byte) Request {
	return Request{Type: ReqGetProviders, Cid: cid}
}

// NewPeersRequest creates a new Peers request.
func NewPeersRequest() Request {
	return Request{Type: ReqPeers}
}

// --------------------------------------------------------------------------
// Response Definition
// --------------------------------------------------------------------------

// ResponseType defines the response variants the local node produces.
type ResponseType uint8

const (
	RespSuccess      ResponseType = iota // Bare acknowledgment.
	RespAddBytes                         // Carries the new content id.
	RespCatBytes                         // Carries the fetched bytes.
	RespRemoveBlock                      // Carries the removed content id.
	RespFindPeer                         // Carries the peer's addresses.
	RespGetProviders                     // Carries the providing peer ids.
	RespPeers                            // Carries the connected peer addresses.
)

func (t ResponseType) String() string {
	switch t {
	case RespSuccess:
		return "Success"
	case RespAddBytes:
		return "AddBytes"
	case RespCatBytes:
		return "CatBytes"
	case RespRemoveBlock:
		return "RemoveBlock"
	case RespFindPeer:
		return "FindPeer"
	case RespGetProviders:
		return "GetProviders"
	case RespPeers:
		return "Peers"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Response is a single typed response from the local node. Which fields are
// used depends on the response type.
type Response struct {
	Type ResponseType

	Cid       []byte   // Used for: AddBytes, RemoveBlock
	Data      []byte   // Used for: CatBytes
	Addrs     [][]byte // Used for: FindPeer
	Providers [][]byte // Used for: GetProviders
	Peers     [][]byte // Used for: Peers
}

// ResponseFor is the closed request→response mapping. Every request type has
// exactly one valid response type; anything else coming back from a gateway
// is an internal-consistency fault, not a normal error.
var ResponseFor = map[RequestType]ResponseType{
	ReqConnect:      RespSuccess,
	ReqDisconnect:   RespSuccess,
	ReqAddBytes:     RespAddBytes,
	ReqCatBytes:     RespCatBytes,
	ReqRemoveBlock:  RespRemoveBlock,
	ReqInsertPin:    RespSuccess,
	ReqRemovePin:    RespSuccess,
	ReqFindPeer:     RespFindPeer,
	ReqGetProviders: RespGetProviders,
	ReqPeers:        RespPeers,
}

// CheckResponse asserts that resp is the one valid response variant for req.
// Gateway implementations call it on every response before returning.
func CheckResponse(req Request, resp Response) error {
	want, ok := ResponseFor[req.Type]
	if !ok {
		return NewError(ErrCantCreateRequest, fmt.Sprintf("unknown request type %s", req.Type))
	}
	if resp.Type != want {
		return NewError(ErrProtocolViolation,
			fmt.Sprintf("response %s does not match request %s (expected %s)", resp.Type, req.Type, want))
	}
	return nil
}

// --------------------------------------------------------------------------
// Gateway Interface
// --------------------------------------------------------------------------

// IGateway sends typed requests to the local IPFS node. Send blocks the
// calling goroutine until the node responds or the deadline elapses; a zero
// deadline means no timeout. There is no retry and no cancellation signal
// beyond the deadline.
type IGateway interface {
	Send(req Request, deadline time.Time) (Response, error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrCode classifies gateway failures.
type ErrCode uint8

const (
	ErrCantCreateRequest ErrCode = iota // The request could not be constructed or submitted.
	ErrRequestTimeout                   // The deadline elapsed with no response.
	ErrRequestFailed                    // The node responded with an I/O or protocol error.
	ErrProtocolViolation                // A response variant mismatched its request kind.
)

func (c ErrCode) String() string {
	switch c {
	case ErrCantCreateRequest:
		return "CantCreateRequest"
	case ErrRequestTimeout:
		return "RequestTimeout"
	case ErrRequestFailed:
		return "RequestFailed"
	case ErrProtocolViolation:
		return "ProtocolInvariantViolation"
	default:
		return "Unknown"
	}
}

// Error wraps an error code and a message.
type Error struct {
	Code ErrCode
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("NodeError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new gateway error with the given code and message.
func NewError(code ErrCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code ErrCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
