package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionStats(t *testing.T) {
	s := NewCollectionStats([]int64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 2.0, s.StdDev)
	assert.Equal(t, int64(2), s.Min)
	assert.Equal(t, int64(9), s.Max)

	assert.Equal(t, CollectionStats{}, NewCollectionStats(nil))
}

func TestCollectionBalance(t *testing.T) {
	even := NewCollectionStats([]int64{10, 10, 10})
	assert.Equal(t, 1.0, even.Balance)

	skewed := NewCollectionStats([]int64{0, 0, 30})
	assert.Less(t, skewed.Balance, even.Balance)
}

func TestSizeEstimator(t *testing.T) {
	e := NewSizeEstimator()
	assert.Equal(t, 0, e.Estimate())

	for i := 0; i < 10; i++ {
		e.Add(100)
	}
	e.Add(1200)

	assert.Equal(t, int64(11), e.Count())
	// median 100, mean 200
	assert.Equal(t, 140, e.Estimate())
}

func TestReplicaID(t *testing.T) {
	assert.Equal(t, ReplicaID("node-1"), ReplicaID("node-1"))
	assert.NotEqual(t, ReplicaID("node-1"), ReplicaID("node-2"))
	assert.NotZero(t, ReplicaID(""))
}
