package serve

import (
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/db/util"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShards(t *testing.T) {
	shards, err := ParseShards("100=lstore, 200 = dstore")
	require.NoError(t, err)
	assert.Equal(t, []common.ServerShard{
		{ShardID: 100, Type: common.ShardTypeLocalIStore},
		{ShardID: 200, Type: common.ShardTypeRemoteIStore},
	}, shards)

	for _, invalid := range []string{"", "100", "abc=lstore", "100=lockmgr(lstore)", "100=lstore=x"} {
		_, err := ParseShards(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestParseClusterMembers(t *testing.T) {
	members, err := ParseClusterMembers("node-1=localhost:63001,node-2=localhost:63002")
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, "localhost:63001", members[util.ReplicaID("node-1")])
	assert.Equal(t, "localhost:63002", members[util.ReplicaID("node-2")])

	_, err = ParseClusterMembers("node-1")
	assert.Error(t, err)
}
