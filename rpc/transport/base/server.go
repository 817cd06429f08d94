package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TCPConf) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	listener   net.Listener
	listenerMu sync.Mutex
	closed     atomic.Bool
	active     *xsync.MapOf[net.Conn, struct{}]
	buffers    *sync.Pool
	workers    int
}

// serverConn is the state of one accepted connection. Frames are read sequentially,
// up to workers requests of the connection are handled at the same time.
type serverConn struct {
	conn    net.Conn
	t       *serverTransport
	timeout time.Duration
	slots   chan struct{} // counting semaphore
	writeMu sync.Mutex
	running sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, bufferSize int, maxWorkersPerConn int) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		workers:   max(maxWorkersPerConn, 1),
		buffers:   newBufferPool(bufferSize),
		active:    xsync.NewMapOf[net.Conn, struct{}](),
	}
}

func newBufferPool(size int) *sync.Pool {
	return &sync.Pool{New: func() any { return make([]byte, size) }}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	t.config = config

	// config values win over the constructor arguments
	if config.Transport.WorkersPerConn > 0 {
		t.workers = config.Transport.WorkersPerConn
	}
	if config.Transport.BufferSize > 0 {
		t.buffers = newBufferPool(config.Transport.BufferSize)
	}

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	t.listenerMu.Lock()
	if t.closed.Load() {
		t.listenerMu.Unlock()
		return listener.Close()
	}
	t.listener = listener
	t.listenerMu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), config.Transport.Endpoint, t.workers)

	for {
		conn, err := listener.Accept()
		if t.closed.Load() || errors.Is(err, net.ErrClosed) {
			if conn != nil {
				conn.Close()
			}
			return nil
		}
		if err != nil {
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config.Transport.TCPConf); err != nil {
			Logger.Warningf("Failed to upgrade connection: %v", err)
		}

		sc := &serverConn{
			conn:    conn,
			t:       t,
			timeout: time.Duration(config.TimeoutSecond) * time.Second,
			slots:   make(chan struct{}, t.workers),
		}
		t.active.Store(conn, struct{}{})
		go sc.serve()
	}
}

// Shutdown stops accepting and closes all open connections. Requests that are
// already being handled run to completion, their responses are dropped.
func (t *serverTransport) Shutdown() error {
	t.closed.Store(true)

	t.listenerMu.Lock()
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.listenerMu.Unlock()

	t.active.Range(func(conn net.Conn, _ struct{}) bool {
		conn.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// serve reads request frames until the client goes away or the transport shuts down
func (c *serverConn) serve() {
	defer func() {
		c.running.Wait()
		c.t.active.Delete(c.conn)
		c.conn.Close()
	}()

	for {
		if c.timeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		buf := c.t.buffers.Get().([]byte)
		shardID, requestID, data, err := readFrame(c.conn, buf)
		if err != nil {
			c.t.buffers.Put(buf)
			switch {
			case err == io.EOF:
				Logger.Debugf("Connection closed by client")
			case c.t.closed.Load() || errors.Is(err, net.ErrClosed):
			default:
				Logger.Errorf("Error handling request: %v", err)
			}
			return
		}

		c.slots <- struct{}{} // blocks while all workers are busy
		c.running.Add(1)
		go func() {
			defer func() {
				c.t.buffers.Put(buf)
				<-c.slots
				c.running.Done()
			}()
			c.respond(shardID, requestID, data)
		}()
	}
}

// respond runs the handler and writes the response tagged with the request id
func (c *serverConn) respond(shardID, requestID uint64, data []byte) {
	start := time.Now()
	resp := c.t.handler(shardID, data)
	Logger.Debugf("Processed request for shard %d with requestID %d took %s", shardID, requestID, time.Since(start))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			Logger.Errorf("Failed to set write deadline: %v", err)
			return
		}
	}
	if err := writeFrame(c.conn, shardID, requestID, resp); err != nil && !c.t.closed.Load() {
		Logger.Errorf("Failed to write response: %v", err)
	}
}
