// Package testing provides the behavioural test suite every store.IStore implementation runs:
// the local store over each engine and the RPC client against a served shard.
//
//	dbtesting.RunStoreTests(t, "LocalStore(maple)", func(t *testing.T) store.IStore {
//		s, err := lstore.NewLocalStore(factory)
//		require.NoError(t, err)
//		return s
//	})
package testing
