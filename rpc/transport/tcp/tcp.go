package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/ValentinKolb/dCommerce/rpc/transport/base"
)

const (
	defaultBufferSize     = 512 * 1024
	defaultWorkersPerConn = 64
	dialTimeout           = 5 * time.Second
)

// connector is used on both sides, it implements base.IClientConnector and base.IServerConnector
type connector struct{}

func (connector) GetName() string { return "tcp" }

func (connector) Connect(endpoint string) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, dialTimeout)
}

func (connector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", config.Transport.Endpoint, err)
	}
	return listener, nil
}

// UpgradeConnection applies the configured socket options, other connection types are left as they are
func (connector) UpgradeConnection(conn net.Conn, config common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(config.TCPNoDelay); err != nil {
		return err
	}
	if config.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}
	if config.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}
	if config.TCPKeepAliveSec > 0 {
		err := tcpConn.SetKeepAliveConfig(net.KeepAliveConfig{
			Enable: true,
			Idle:   time.Duration(config.TCPKeepAliveSec) * time.Second,
		})
		if err != nil {
			return err
		}
	}
	if config.TCPLingerSec > 0 {
		return tcpConn.SetLinger(config.TCPLingerSec)
	}
	return nil
}

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(connector{})
}

// NewTCPDefaultServerTransport creates a TCP server transport with the default buffer size and worker count
func NewTCPDefaultServerTransport() transport.IRPCServerTransport {
	return NewTCPServerTransport(defaultBufferSize, defaultWorkersPerConn)
}

// NewTCPServerTransport creates a TCP server transport, the values of the server config take precedence
func NewTCPServerTransport(bufferSize, workersPerConn int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(connector{}, bufferSize, workersPerConn)
}
