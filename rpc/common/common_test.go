package common

import (
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug": logger.DEBUG,
		"":      logger.INFO,
		"INFO":  logger.INFO,
		"warn":  logger.WARNING,
		"error": logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestServerConfigString(t *testing.T) {
	c := ServerConfig{
		Shards: []ServerShard{
			{ShardID: 100, Type: ShardTypeLocalIStore},
			{ShardID: 200, Type: ShardTypeRemoteIStore},
		},
		Engine:         EngineMaple,
		RTTMillisecond: 100,
		ReplicaID:      2,
		ClusterMembers: map[uint64]string{2: "localhost:63002", 1: "localhost:63001"},
		Transport:      ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
	}

	out := c.String()
	assert.Contains(t, out, "RPC SERVER")
	assert.Contains(t, out, "0.0.0.0:8080")
	assert.Contains(t, out, "1000 ms")
	assert.Less(t, strings.Index(out, "Replica 1"), strings.Index(out, "Replica 2"))

	c.Shards = c.Shards[:1]
	assert.NotContains(t, c.String(), "RAFT")
}

func TestServerConfigRaft(t *testing.T) {
	c := ServerConfig{
		ReplicaID:       3,
		SnapshotEntries: 50,
		DataDir:         "/tmp/data",
		ClusterMembers:  map[uint64]string{3: "node3:63000"},
	}

	rc := c.ToDragonboatConfig(7)
	assert.Equal(t, uint64(7), rc.ShardID)
	assert.Equal(t, uint64(3), rc.ReplicaID)
	assert.True(t, rc.CheckQuorum)
	assert.Equal(t, uint64(50), rc.SnapshotEntries)

	assert.Equal(t, "node3:63000", c.ToNodeHostConfig().RaftAddress)
	assert.Equal(t, "/tmp/data/shard-7.db", c.SQLitePath(7))
}
