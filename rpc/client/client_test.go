package client_test

import (
	"errors"
	"fmt"
	"math"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/commerce"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	storetesting "github.com/ValentinKolb/dCommerce/lib/store/testing"
	"github.com/ValentinKolb/dCommerce/rpc/client"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/serializer"
	"github.com/ValentinKolb/dCommerce/rpc/server"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/ValentinKolb/dCommerce/rpc/transport/http"
	"github.com/ValentinKolb/dCommerce/rpc/transport/tcp"
	"github.com/ValentinKolb/dCommerce/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// shardsPerServer is larger than the number of subtests of the store suite,
// every subtest gets a fresh shard
const shardsPerServer = 20

type transportCase struct {
	name      string
	network   string
	server    func() transport.IRPCServerTransport
	client    func() transport.IRPCClientTransport
	serialize func() serializer.IRPCSerializer
}

var transportCases = []transportCase{
	{"TCP-Binary", "tcp", tcp.NewTCPDefaultServerTransport, tcp.NewTCPClientTransport, serializer.NewBinarySerializer},
	{"TCP-GOB", "tcp", tcp.NewTCPDefaultServerTransport, tcp.NewTCPClientTransport, serializer.NewGOBSerializer},
	{"Unix-Binary", "unix", unix.NewUnixDefaultServerTransport, unix.NewUnixClientTransport, serializer.NewBinarySerializer},
	{"HTTP-JSON", "tcp", http.NewHttpServerTransport, http.NewHttpClientTransport, serializer.NewJSONSerializer},
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// endpoint returns a free local address for the network
func endpoint(t *testing.T, network string) string {
	t.Helper()
	if network == "unix" {
		return filepath.Join(t.TempDir(), "dcommerce.sock")
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startServer serves shardsPerServer local shards (ids 1..n) and stops the server on cleanup
func startServer(t *testing.T, tc transportCase, seed bool) string {
	t.Helper()

	shards := make([]common.ServerShard, 0, shardsPerServer)
	for i := 1; i <= shardsPerServer; i++ {
		shards = append(shards, common.ServerShard{ShardID: uint64(i), Type: common.ShardTypeLocalIStore})
	}

	ep := endpoint(t, tc.network)
	config := common.ServerConfig{
		Shards:        shards,
		Engine:        common.EngineMaple,
		Seed:          seed,
		TimeoutSecond: 5,
		LogLevel:      "error",
		Transport:     common.ServerTransportConfig{Endpoint: ep},
	}

	s := server.NewRPCServer(config, tc.server(), tc.serialize())
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	t.Cleanup(func() {
		require.NoError(t, s.Shutdown())
		require.NoError(t, <-done)
	})

	// wait until the listener accepts connections
	require.Eventually(t, func() bool {
		conn, err := net.Dial(tc.network, ep)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	return ep
}

func newClient(t *testing.T, tc transportCase, ep string, shard uint64) store.IStore {
	t.Helper()
	tr := tc.client()
	s, err := client.NewRPCStore(shard, common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{ep},
			RetryCount: 2,
		},
	}, tr, tc.serialize())
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return s
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestRPCStore(t *testing.T) {
	for _, tc := range transportCases {
		ep := startServer(t, tc, false)

		var next atomic.Uint64
		storetesting.RunStoreTests(t, tc.name, func(t *testing.T) store.IStore {
			shard := next.Add(1)
			require.LessOrEqual(t, shard, uint64(shardsPerServer), "not enough shards for the suite")
			return newClient(t, tc, ep, shard)
		})
	}
}

func TestRPCStoreErrors(t *testing.T) {
	tc := transportCases[0]
	ep := startServer(t, tc, false)

	t.Run("UnknownShard", func(t *testing.T) {
		s := newClient(t, tc, ep, shardsPerServer+1)
		_, _, err := s.Read("c", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("InvalidMutation", func(t *testing.T) {
		s := newClient(t, tc, ep, 1)
		id, err := s.Create("carts", doc.Document{})
		require.NoError(t, err)

		_, _, err = s.Apply("carts", id, aggregate.Mutation{Type: "explode"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mutation type")
	})

	t.Run("MalformedParamsKeepStoreCode", func(t *testing.T) {
		tr := tc.client()
		require.NoError(t, tr.Connect(common.ClientConfig{
			TimeoutSecond: 5,
			Transport:     common.ClientTransportConfig{Endpoints: []string{ep}, RetryCount: 1},
		}))
		t.Cleanup(func() { tr.Close() })

		ser := tc.serialize()
		req, err := ser.Serialize(*common.NewApplyRequest("carts", "CART001", []byte("{not json")))
		require.NoError(t, err)
		raw, err := tr.Send(3, req)
		require.NoError(t, err)

		var resp common.Message
		require.NoError(t, ser.Deserialize(raw, &resp))

		var se *store.Error
		require.True(t, errors.As(resp.Error(), &se))
		assert.Equal(t, store.RetCInvalidOperation, se.Code)
	})

	t.Run("LargePagingValues", func(t *testing.T) {
		s := newClient(t, tc, ep, 4)
		for i := 0; i < 3; i++ {
			_, err := s.Create("products", doc.Document{"name": doc.Str(fmt.Sprint("p", i))})
			require.NoError(t, err)
		}

		page, err := s.Query("products", query.Spec{Skip: math.MaxInt})
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.False(t, page.HasNextPage)
		assert.Equal(t, 3, page.TotalRecordsCount)

		page, err = s.Query("products", query.Spec{Skip: 1, Top: math.MaxInt})
		require.NoError(t, err)
		assert.Len(t, page.Results, 2)
		assert.False(t, page.HasNextPage)
	})

	t.Run("MissingIsNotAnError", func(t *testing.T) {
		s := newClient(t, tc, ep, 2)
		d, found, err := s.Read("c", "nope")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, d)

		d, found, err = s.Apply("carts", "nope", aggregate.SetFields(doc.Document{"a": doc.Int(1)}))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, d)
	})
}

func TestSeededServer(t *testing.T) {
	tc := transportCases[len(transportCases)-1]
	ep := startServer(t, tc, true)
	s := newClient(t, tc, ep, 1)

	svc := commerce.NewService(s)

	cart, err := svc.GetCart("CART001")
	require.NoError(t, err)
	lines, _ := cart.GetList(aggregate.FieldLines)
	require.Len(t, lines, 1)
	line, _ := lines[0].AsDocument()
	name, _ := line.GetString("product_name")
	assert.Equal(t, "Wireless Bluetooth Headphones", name)

	balance, err := svc.Balance("LOY001")
	require.NoError(t, err)
	assert.Equal(t, 1250.0, balance)

	n, err := s.Count(commerce.CollStores, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := s.GetDBInfo()
	require.NoError(t, err)
	assert.Equal(t, "maple", fmt.Sprint(info.DbType))
}
