package server

import (
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingAdapter struct{}

func (panickingAdapter) Handle(*common.Message, store.IStore) *common.Message {
	panic("boom")
}

func TestHandleRecoversFromPanics(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	s := NewRPCServer(common.ServerConfig{}, nil, ser)
	s.shards.Store(1, serverShard{Adapter: panickingAdapter{}})

	req, err := ser.Serialize(*common.NewReadRequest("c", "x"))
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, ser.Deserialize(s.handle(1, req), &resp))
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "boom")

	// the server keeps answering afterwards
	require.NoError(t, ser.Deserialize(s.handle(2, req), &resp))
	assert.Contains(t, resp.Err, "shard 2 not found")
}
