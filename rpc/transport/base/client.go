package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	ErrTransportClosed = errors.New("transport is closed")
	ErrRequestTimeout  = errors.New("request timed out")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TCPConf) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// pendingRequests correlates response frames with the requests waiting for them
type pendingRequests struct {
	waiting *xsync.MapOf[uint64, chan responseResult]
}

func newPendingRequests() pendingRequests {
	return pendingRequests{waiting: xsync.NewMapOf[uint64, chan responseResult]()}
}

// register returns the channel the response of requestID is delivered on
func (p pendingRequests) register(requestID uint64) chan responseResult {
	ch := make(chan responseResult, 1)
	p.waiting.Store(requestID, ch)
	return ch
}

func (p pendingRequests) forget(requestID uint64) {
	p.waiting.Delete(requestID)
}

// resolve hands data to the waiting request, false if nobody waits (e.g. it timed out)
func (p pendingRequests) resolve(requestID uint64, data []byte) bool {
	ch, ok := p.waiting.LoadAndDelete(requestID)
	if !ok {
		return false
	}
	ch <- responseResult{data: data}
	return true
}

// failAll fails every waiting request with err
func (p pendingRequests) failAll(err error) {
	p.waiting.Range(func(id uint64, ch chan responseResult) bool {
		select {
		case ch <- responseResult{err: err}:
		default:
		}
		return true
	})
}

// clientConnection is one multiplexed connection to an endpoint. Requests are written under
// connMu, a single reader goroutine dispatches the responses by request id.
type clientConnection struct {
	conn     net.Conn
	endpoint string
	stopCh   chan struct{} // closed when the transport closes the connection
	pending  pendingRequests
	connMu   sync.Mutex // guards conn and serializes frame writes
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64 // round robin counter
	nextRequestID atomic.Uint64
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Drop the connections of an earlier Connect
	t.closeConnections()

	t.config = config
	t.stopping.Store(false)

	perEndpoint := max(config.Transport.ConnectionsPerEndpoint, 1)
	wanted := len(config.Transport.Endpoints) * perEndpoint
	connections := make([]*clientConnection, 0, wanted)

	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < perEndpoint; i++ {
			c := &clientConnection{
				endpoint: endpoint,
				stopCh:   make(chan struct{}),
				pending:  newPendingRequests(),
				parent:   t,
			}
			if err := c.dial(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, perEndpoint, err)
				continue
			}
			connections = append(connections, c)
			go c.readResponses()
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected %d/%d %s connections to %d endpoints",
		len(connections), wanted, t.connector.GetName(), len(config.Transport.Endpoints))

	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	if t.stopping.Load() {
		return nil, ErrTransportClosed
	}

	requestID := t.nextRequestID.Add(1)
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	attempts := max(t.config.Transport.RetryCount, 1)
	backoff := 50 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		c := t.nextConnection()
		if c == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		data, err := c.roundTrip(shardId, requestID, req, timeout)
		if err == nil {
			return data, nil
		}
		if t.stopping.Load() {
			return nil, ErrTransportClosed
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", attempt, attempts, err)

		if attempt < attempts {
			// exponential backoff with +-10% jitter
			time.Sleep(time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64())))
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nextConnection selects the next connection via round robin
func (t *clientTransport) nextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	default:
		return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
	}
}

// closeConnections closes all connections and stops their readers
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		close(c.stopCh)
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()
		c.pending.failAll(ErrTransportClosed)
	}
}

// roundTrip writes one request frame and waits for the matching response
func (c *clientConnection) roundTrip(shardID, requestID uint64, req []byte, timeout time.Duration) ([]byte, error) {
	respCh := c.pending.register(requestID)
	defer c.pending.forget(requestID)

	c.connMu.Lock()
	conn := c.conn
	if conn == nil {
		c.connMu.Unlock()
		return nil, fmt.Errorf("connection to %s is closed", c.endpoint)
	}
	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := writeFrame(conn, shardID, requestID, req)
	c.connMu.Unlock()
	if err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time // nil blocks forever
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, ErrRequestTimeout
	}
}

// readResponses dispatches response frames until the connection is closed by the transport.
// There is no read deadline, the connection may idle between requests; Send enforces
// the request timeouts.
func (c *clientConnection) readResponses() {
	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		shardID, requestID, data, err := readFrame(conn, nil)
		if err == nil {
			if !c.pending.resolve(requestID, data) {
				Logger.Warningf("Received response for unknown request ID %d with shard ID %d", requestID, shardID)
			}
			continue
		}

		select {
		case <-c.stopCh:
			return
		default:
		}

		// the frame boundary is lost, every waiting request fails
		c.pending.failAll(fmt.Errorf("error reading response: %w", err))
		Logger.Warningf("Error reading from %s, reconnecting: %v", c.endpoint, err)

		if err := c.dial(); err != nil {
			Logger.Errorf("Failed to reconnect to %s: %v", c.endpoint, err)
			return
		}
	}
}

// dial (re)establishes the connection to the endpoint
func (c *clientConnection) dial() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.stopCh:
		return ErrTransportClosed
	default:
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config.Transport.TCPConf); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", c.endpoint, err)
	}

	c.conn = conn
	return nil
}
