package common

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// Server configuration
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeLocalIStore  ServerShardType = "lstore" // store kept in this process
	ShardTypeRemoteIStore ServerShardType = "dstore" // store replicated with raft across the cluster members
)

type ServerShard struct {
	ShardID uint64
	Type    ServerShardType
}

// Engine selects the database engine local shards are backed by.
type Engine string

const (
	EngineMaple  Engine = "maple"
	EngineSQLite Engine = "sqlite"
)

// TCPConf holds socket options applied to tcp connections (ignored by other transports).
// Zero values keep the os defaults.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// ServerTransportConfig holds the settings of the server transport layer.
type ServerTransportConfig struct {
	TCPConf

	// Endpoint is the listen address (host:port or a unix socket path)
	Endpoint string
	// WorkersPerConn limits the requests handled concurrently per connection (tcp, unix)
	WorkersPerConn int
	// BufferSize is the size of the pooled read buffers (tcp, unix)
	BufferSize int
}

// ServerConfig holds all configuration parameters for the RPC server and the raft cluster.
type ServerConfig struct {
	Shards []ServerShard

	// storage of local shards
	Engine  Engine
	DataDir string
	Seed    bool // load the demo data set into every local shard without products

	// raft, only used if a shard is of type dstore
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// timeout for raft proposals and connection deadlines
	TimeoutSecond int64

	Transport ServerTransportConfig
	LogLevel  string
}

// election and heartbeat timeouts in multiples of RTTMillisecond
const (
	electionRTT  = 10
	heartbeatRTT = 1
)

// ToDragonboatConfig returns the raft config of one replica of shardId
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTT,
		HeartbeatRTT:       heartbeatRTT,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
	}
}

// ToNodeHostConfig returns the config of the raft node host, the log and snapshots live in DataDir
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// HasRemoteShard reports whether any shard is replicated with raft
func (c *ServerConfig) HasRemoteShard() bool {
	return slices.ContainsFunc(c.Shards, func(s ServerShard) bool {
		return s.Type == ShardTypeRemoteIStore
	})
}

// SQLitePath returns the database file used for a local sqlite shard.
func (c *ServerConfig) SQLitePath(shardID uint64) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("shard-%d.db", shardID))
}

// String renders the configuration for the startup log
func (c *ServerConfig) String() string {
	var r report

	r.section("rpc server")
	r.field("Endpoint", c.Transport.Endpoint)
	r.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	r.field("Workers per Conn", c.Transport.WorkersPerConn)
	r.field("Log Level", c.LogLevel)

	r.section("storage")
	r.field("Engine", c.Engine)
	r.field("Data Directory", c.DataDir)
	r.field("Seed Demo Data", c.Seed)

	r.section("shards")
	for _, shard := range c.Shards {
		r.field(fmt.Sprint(shard.ShardID), shard.Type)
	}

	if !c.HasRemoteShard() {
		return r.String()
	}

	r.section("raft")
	r.field("Replica ID", c.ReplicaID)
	r.field("Raft Address", c.ClusterMembers[c.ReplicaID])
	r.field("RTT", fmt.Sprintf("%d ms", c.RTTMillisecond))
	r.field("Election Timeout", fmt.Sprintf("%d ms", c.RTTMillisecond*electionRTT))
	r.field("Heartbeat", fmt.Sprintf("%d ms", c.RTTMillisecond*heartbeatRTT))
	r.field("Snapshot Entries", c.SnapshotEntries)
	r.field("Compaction Overhead", c.CompactionOverhead)

	r.section("cluster")
	for _, id := range slices.Sorted(maps.Keys(c.ClusterMembers)) {
		r.field(fmt.Sprintf("Replica %d", id), c.ClusterMembers[id])
	}
	return r.String()
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// ClientTransportConfig holds the settings of the client transport layer.
type ClientTransportConfig struct {
	TCPConf

	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

func (c *ClientConfig) String() string {
	var r report

	r.section("client")
	r.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	r.field("Retry Count", c.Transport.RetryCount)
	r.field("Conns per Endpoint", max(1, c.Transport.ConnectionsPerEndpoint))

	r.section("endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		r.field(fmt.Sprint(i), endpoint)
	}
	return r.String()
}

// report builds the "SECTION / name: value" blocks printed by the String methods
type report struct {
	strings.Builder
}

func (r *report) section(title string) {
	fmt.Fprintf(r, "\n%s\n", strings.ToUpper(title))
}

func (r *report) field(name string, value any) {
	fmt.Fprintf(r, "  %-22s: %v\n", name, value)
}
