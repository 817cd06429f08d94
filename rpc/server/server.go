package server

import (
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/commerce"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/db/engines/maple"
	"github.com/ValentinKolb/dCommerce/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/lib/store/dstore"
	"github.com/ValentinKolb/dCommerce/lib/store/lstore"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/serializer"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is the store of one shard and the adapter answering its requests
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer serves the stores of all configured shards over one transport.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	nodeHost   *dragonboat.NodeHost
	ready      chan struct{}
	closeOnce  sync.Once

	dbMu      sync.Mutex
	databases []db.DocDB // databases of local shards, closed on Shutdown
}

// NewRPCServer creates a server for the shards of config. Nothing is started
// before Serve is called.
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewJSONSerializer())
//	if err := s.Serve(); err != nil {
//		log.Fatal(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
		ready:      make(chan struct{}),
	}
}

// Serve sets up the shards and runs the transport until Shutdown is called.
func (s *RPCServer) Serve() error {
	err := s.init()
	close(s.ready)
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Ready is closed once the shards are set up and the transport is about to listen.
func (s *RPCServer) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown stops the transport, the raft node host (if any) and closes the databases of local shards.
func (s *RPCServer) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.transport.Shutdown()
		if s.nodeHost != nil {
			s.nodeHost.Close()
		}

		s.dbMu.Lock()
		defer s.dbMu.Unlock()
		for _, database := range s.databases {
			err = errors.Join(err, database.Close())
		}
	})
	return err
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

func (s *RPCServer) init() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}
	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if s.config.HasRemoteShard() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	for _, shard := range s.config.Shards {
		st, err := s.openShard(shard)
		if err != nil {
			return err
		}
		s.shards.Store(shard.ShardID, serverShard{Store: st, Adapter: NewIStoreServerAdapter()})
	}

	s.transport.RegisterHandler(s.handle)
	Logger.Infof("dCommerce setup completed successfully")
	return nil
}

// openShard creates the store of a shard, a local store is seeded if configured
func (s *RPCServer) openShard(shard common.ServerShard) (store.IStore, error) {
	switch shard.Type {
	case common.ShardTypeLocalIStore:
		st, err := lstore.NewLocalStore(s.localDB(shard.ShardID))
		if err != nil {
			return nil, fmt.Errorf("failed to create local store for shard %d: %w", shard.ShardID, err)
		}
		if s.config.Seed {
			if err := seed(shard.ShardID, st); err != nil {
				return nil, err
			}
		}
		Logger.Infof("created local store for shard %d (engine %s)", shard.ShardID, s.config.Engine)
		return st, nil

	case common.ShardTypeRemoteIStore:
		if s.nodeHost == nil {
			return nil, fmt.Errorf("node host is nil, cannot create remote store")
		}

		// replicas keep their state in memory, durability comes from the raft log
		factory := dstore.CreateStateMaschineFactory(func() (db.DocDB, error) { return maple.NewMapleDB(nil), nil })
		err := s.nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false, factory, s.config.ToDragonboatConfig(shard.ShardID))
		if err != nil {
			return nil, fmt.Errorf("failed to start shard %d: %w", shard.ShardID, err)
		}
		Logger.Infof("started raft replica %d for shard %d", s.config.ReplicaID, shard.ShardID)

		timeout := time.Duration(s.config.TimeoutSecond) * time.Second
		return dstore.NewDistributedStore(s.nodeHost, shard.ShardID, timeout), nil

	default:
		return nil, fmt.Errorf("invalid shard type: %s", shard.Type)
	}
}

// localDB returns the factory for the database of a local shard, created databases are tracked for Shutdown
func (s *RPCServer) localDB(shardID uint64) store.DBFactory {
	return func() (db.DocDB, error) {
		var database db.DocDB
		if s.config.Engine == common.EngineSQLite {
			d, err := sqlite.NewSQLiteDB(s.config.SQLitePath(shardID))
			if err != nil {
				return nil, err
			}
			database = d
		} else {
			database = maple.NewMapleDB(nil)
		}

		s.dbMu.Lock()
		s.databases = append(s.databases, database)
		s.dbMu.Unlock()
		return database, nil
	}
}

// seed loads the demo data set into a local store without products
func seed(shardID uint64, st store.IStore) error {
	n, err := st.Count(commerce.CollProducts, nil)
	if err != nil {
		return fmt.Errorf("failed to inspect shard %d before seeding: %w", shardID, err)
	}
	if n > 0 {
		Logger.Infof("shard %d already holds data, skipping seed", shardID)
		return nil
	}
	created, err := commerce.LoadSeed(st)
	if err != nil {
		return fmt.Errorf("failed to seed shard %d: %w", shardID, err)
	}
	Logger.Infof("seeded shard %d with %d documents", shardID, created)
	return nil
}

// --------------------------------------------------------------------------
// Request handling
// --------------------------------------------------------------------------

// handle is the transport.ServerHandleFunc of the server
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	start := time.Now()

	var msg common.Message
	resp := s.dispatch(shardId, req, &msg)
	observeRequest(msg.MsgType, start, resp.Err != "")

	out, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		out, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return out
}

// dispatch decodes req into msg and lets the adapter of the shard answer it.
// A panic while answering is turned into an error response.
func (s *RPCServer) dispatch(shardId uint64, req []byte, msg *common.Message) (resp *common.Message) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("panic while handling %v request for shard %d: %v", msg.MsgType, shardId, r)
			resp = common.NewErrorResponse(fmt.Sprintf("internal error: %v", r))
		}
	}()

	shard, ok := s.shards.Load(shardId)
	if !ok {
		return common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	}
	if err := s.serializer.Deserialize(req, msg); err != nil {
		return common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	}
	return shard.Adapter.Handle(msg, shard.Store)
}
