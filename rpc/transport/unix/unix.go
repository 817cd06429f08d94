package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/ValentinKolb/dCommerce/rpc/transport/base"
)

const (
	defaultBufferSize     = 64 * 1024
	defaultWorkersPerConn = 64
)

type connector struct{}

func (connector) GetName() string { return "unix" }

func (connector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

func (connector) Listen(config common.ServerConfig) (net.Listener, error) {
	path := config.Transport.Endpoint

	if info, err := os.Stat(path); err == nil {
		if info.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %v", err)
		}
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", path, err)
	}
	return listener, nil
}

// UpgradeConnection is a no-op, there are no socket options for unix sockets
func (connector) UpgradeConnection(net.Conn, common.TCPConf) error {
	return nil
}

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(connector{})
}

// NewUnixDefaultServerTransport creates a Unix server transport with the default buffer size
func NewUnixDefaultServerTransport() transport.IRPCServerTransport {
	return NewUnixServerTransport(defaultBufferSize, defaultWorkersPerConn)
}

func NewUnixServerTransport(bufferSize, workersPerConn int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(connector{}, bufferSize, workersPerConn)
}
