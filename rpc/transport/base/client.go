package base

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/pcrawfurd/dIPFS/rpc/common"
	"github.com/pcrawfurd/dIPFS/rpc/transport"
)

var Logger = logger.GetLogger("transport/rpc")

// defaultRetryBackoffMs is used when the config leaves the initial retry
// backoff unset.
const defaultRetryBackoffMs = 50

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Pending Call Tracking
// -----------------------------------------------------------

// callResult carries the outcome of one round trip back to the waiter
type callResult struct {
	payload []byte
	err     error
}

// pendingCalls tracks the in-flight requests of one connection, keyed by
// request id. Settle delivers a result to the waiter registered under that
// id, if there still is one.
type pendingCalls struct {
	calls *xsync.MapOf[uint64, chan callResult]
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{calls: xsync.NewMapOf[uint64, chan callResult]()}
}

func (p *pendingCalls) register(requestID uint64) chan callResult {
	ch := make(chan callResult, 1)
	p.calls.Store(requestID, ch)
	return ch
}

func (p *pendingCalls) forget(requestID uint64) {
	p.calls.Delete(requestID)
}

func (p *pendingCalls) settle(requestID uint64, result callResult) bool {
	ch, ok := p.calls.Load(requestID)
	if !ok {
		return false
	}
	ch <- result
	return true
}

// -----------------------------------------------------------
// Connection
// -----------------------------------------------------------

// clientConn is a single multiplexed connection to one endpoint. Many round
// trips share it concurrently; a reader goroutine settles them by request id.
type clientConn struct {
	conn     net.Conn
	endpoint string
	stopCh   chan struct{} // Close signal for the reader goroutine
	pending  *pendingCalls
	writeMu  sync.Mutex // Serializes frame writes and reconnects
	parent   *clientTransport
}

// roundTrip sends one request frame and blocks until the reader settles the
// matching response or the timeout elapses. A zero timeout waits forever.
func (c *clientConn) roundTrip(shardId, requestID uint64, payload []byte, timeout time.Duration) ([]byte, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("connection is closed")
	}

	respCh := c.pending.register(requestID)
	defer c.pending.forget(requestID)

	if timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	out := frame{shard: shardId, request: requestID, payload: payload}
	c.writeMu.Lock()
	err := out.writeTo(c.conn)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timeoutCh = time.After(timeout)
	} else {
		timeoutCh = make(chan time.Time) // Never triggers
	}

	select {
	case result := <-respCh:
		return result.payload, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("request timed out")
	}
}

// readResponses reads frames in a loop and settles the pending calls
func (c *clientConn) readResponses() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if timeout := c.parent.timeout(); timeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(timeout))
		}

		var in frame
		err := in.readFrom(c.conn, nil)

		if err != nil {
			if c.pending.settle(in.request, callResult{err: fmt.Errorf("error reading response: %v", err)}) {
				continue
			}
			// Read error with no waiting call, the stream is broken
			Logger.Errorf("Read error on connection to %s: %v", c.endpoint, err)
			if err := c.reconnect(); err != nil {
				Logger.Errorf("Failed to reconnect to %s: %v", c.endpoint, err)
				return
			}
			continue
		}

		if !c.pending.settle(in.request, callResult{payload: in.payload}) {
			Logger.Warningf("Received response for unknown request ID %d with shard ID %d", in.request, in.shard)
		}
	}
}

// reconnect establishes or restores a connection to the endpoint
func (c *clientConn) reconnect() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", c.endpoint, err)
	}

	c.conn = conn
	return nil
}

// -----------------------------------------------------------
// Transport
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConn
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
	stopping      bool   // Signals shutdown
}

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:     connector,
		nextRequestID: 1, // Start from 1
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	t.config = config
	t.stopping = false

	// Close all existing connections
	t.closeConnections()

	connectionsPerEP := config.Transport.ConnectionsPerEndpoint
	if connectionsPerEP < 1 {
		connectionsPerEP = 1
	}

	t.connections = make([]*clientConn, 0, len(config.Transport.Endpoints)*connectionsPerEP)

	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			c := &clientConn{
				endpoint: endpoint,
				stopCh:   make(chan struct{}),
				pending:  newPendingCalls(),
				parent:   t,
			}

			if err := c.reconnect(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}

			t.connectionsMu.Lock()
			t.connections = append(t.connections, c)
			t.connectionsMu.Unlock()

			Logger.Infof("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)

			go c.readResponses()
		}
	}

	if len(t.connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		len(t.connections), len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	requestID := atomic.AddUint64(&t.nextRequestID, 1)
	timeout := t.timeout()

	maxRetries := t.config.Transport.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}
	backoffMs := t.config.Transport.RetryBackoffMillisecond
	if backoffMs <= 0 {
		backoffMs = defaultRetryBackoffMs
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		data, err := conn.roundTrip(shardId, requestID, req, timeout)
		if err == nil {
			return data, nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %v", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.stopping = true
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// timeout returns the configured per-request timeout, zero meaning none
func (t *clientTransport) timeout() time.Duration {
	if t.config.TimeoutSecond > 0 {
		return time.Duration(t.config.TimeoutSecond) * time.Second
	}
	return 0
}

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConn {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	if len(t.connections) == 1 {
		// optimize for single connection
		return t.connections[0]
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, c := range t.connections {
		close(c.stopCh)
		if c.conn != nil {
			c.conn.Close()
		}
	}
	t.connections = nil
}
