package testing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreFactory creates a new, empty store for a single test
type StoreFactory func(t *testing.T) store.IStore

// RunStoreTests runs the behavioural test suite of the store.IStore contract.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("CreateRead", func(t *testing.T) {
			testCreateRead(t, factory(t))
		})

		t.Run("GeneratedIDs", func(t *testing.T) {
			testGeneratedIDs(t, factory(t))
		})

		t.Run("UpdateMerges", func(t *testing.T) {
			testUpdateMerges(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("UnknownCollection", func(t *testing.T) {
			testUnknownCollection(t, factory(t))
		})

		t.Run("ListCount", func(t *testing.T) {
			testListCount(t, factory(t))
		})

		t.Run("Search", func(t *testing.T) {
			testSearch(t, factory(t))
		})

		t.Run("Query", func(t *testing.T) {
			testQuery(t, factory(t))
		})

		t.Run("ApplyCart", func(t *testing.T) {
			testApplyCart(t, factory(t))
		})

		t.Run("ApplyLedger", func(t *testing.T) {
			testApplyLedger(t, factory(t))
		})

		t.Run("ConcurrentApply", func(t *testing.T) {
			testConcurrentApply(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustCreate(t *testing.T, s store.IStore, collection string, fields map[string]any) string {
	t.Helper()
	id, err := s.Create(collection, doc.MustFromMap(fields))
	require.NoError(t, err)
	return id
}

func ids(docs []doc.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := d.ID()
		out = append(out, id)
	}
	return out
}

func number(t *testing.T, d doc.Document, field string) float64 {
	t.Helper()
	n, ok := d.GetNumber(field)
	require.True(t, ok, "field %s is not a number in %v", field, d)
	return n
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreateRead(t *testing.T, s store.IStore) {
	id := mustCreate(t, s, "things", map[string]any{"name": "x"})
	require.NotEmpty(t, id)

	d, found, err := s.Read("things", id)
	require.NoError(t, err)
	require.True(t, found)

	name, _ := d.GetString("name")
	assert.Equal(t, "x", name)
	got, _ := d.ID()
	assert.Equal(t, id, got)

	for _, field := range []string{doc.FieldCreatedAt, doc.FieldModifiedAt} {
		ts, ok := d.GetString(field)
		require.True(t, ok, "%s must be set", field)
		_, err := time.Parse(time.RFC3339Nano, ts)
		assert.NoError(t, err, "%s must be RFC3339", field)
	}

	// the returned document is a copy
	d["name"] = doc.Str("changed")
	again, _, _ := s.Read("things", id)
	name, _ = again.GetString("name")
	assert.Equal(t, "x", name)
}

func testGeneratedIDs(t *testing.T, s store.IStore) {
	assert.Equal(t, "CUST001", mustCreate(t, s, "customers", map[string]any{"name": "a"}))
	assert.Equal(t, "CUST002", mustCreate(t, s, "customers", map[string]any{"name": "b"}))
	assert.Equal(t, "MINE", mustCreate(t, s, "customers", map[string]any{"id": "MINE"}))

	deleted, err := s.Delete("customers", "CUST001")
	require.NoError(t, err)
	require.True(t, deleted)

	// len+1 would be CUST003, which is free
	assert.Equal(t, "CUST003", mustCreate(t, s, "customers", map[string]any{}))
	// len+1 is CUST004 now
	assert.Equal(t, "CUST004", mustCreate(t, s, "customers", map[string]any{}))
	// a short collection name is used as a whole
	assert.Equal(t, "SO001", mustCreate(t, s, "so", map[string]any{}))
}

func testUpdateMerges(t *testing.T, s store.IStore) {
	id := mustCreate(t, s, "c", map[string]any{"a": 1, "b": 2, "nested": map[string]any{"x": 1, "y": 2}})
	before, _, _ := s.Read("c", id)

	updated, err := s.Update("c", id, doc.MustFromMap(map[string]any{
		"b":         3,
		"nested":    map[string]any{"x": 9},
		"id":        "HIJACK",
		"createdAt": "never",
	}))
	require.NoError(t, err)
	require.True(t, updated)

	d, found, _ := s.Read("c", id)
	require.True(t, found)
	assert.Equal(t, 1.0, number(t, d, "a"), "absent fields are untouched")
	assert.Equal(t, 3.0, number(t, d, "b"))

	nested, _ := d.GetDocument("nested")
	_, hasY := nested["y"]
	assert.False(t, hasY, "the merge is shallow: nested maps are replaced entirely")

	assert.Equal(t, before[doc.FieldCreatedAt], d[doc.FieldCreatedAt])
	gotID, _ := d.ID()
	assert.Equal(t, id, gotID)

	updated, err = s.Update("c", "MISSING", doc.Document{"a": doc.Int(1)})
	require.NoError(t, err)
	assert.False(t, updated)
}

func testDelete(t *testing.T, s store.IStore) {
	id := mustCreate(t, s, "c", map[string]any{"a": 1})

	deleted, err := s.Delete("c", id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, found, err := s.Read("c", id)
	require.NoError(t, err)
	assert.False(t, found)

	deleted, err = s.Delete("c", id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testUnknownCollection(t *testing.T, s store.IStore) {
	_, found, err := s.Read("never", "X")
	assert.NoError(t, err)
	assert.False(t, found)

	ok, err := s.Update("never", "X", doc.Document{"a": doc.Int(1)})
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Delete("never", "X")
	assert.NoError(t, err)
	assert.False(t, ok)

	docs, err := s.List("never", 10, 0, nil)
	assert.NoError(t, err)
	assert.Empty(t, docs)

	n, err := s.Count("never", nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	page, err := s.Query("never", query.Spec{})
	assert.NoError(t, err)
	assert.Zero(t, page.TotalRecordsCount)
	assert.False(t, page.HasNextPage)

	_, found, err = s.Apply("never", "X", aggregate.AddLines(aggregate.CartLine{ProductID: "P1"}))
	assert.NoError(t, err)
	assert.False(t, found)
}

func testListCount(t *testing.T, s store.IStore) {
	for i := 0; i < 10; i++ {
		status := "Active"
		if i%2 == 1 {
			status = "Closed"
		}
		mustCreate(t, s, "orders", map[string]any{"id": fmt.Sprintf("O%02d", i), "status": status, "store_id": "STORE001"})
	}

	all, err := s.List("orders", 0, 0, nil)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	active, err := s.List("orders", 2, 1, query.Filters{"status": doc.Str("Active")})
	require.NoError(t, err)
	assert.Equal(t, []string{"O02", "O04"}, ids(active))

	n, err := s.Count("orders", query.Filters{"status": doc.Str("Closed"), "store_id": doc.Str("STORE001")})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.Count("orders", query.Filters{"status": doc.Str("Closed"), "store_id": doc.Str("STORE002")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.Count("orders", nil)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	beyond, err := s.List("orders", 5, 20, nil)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func testSearch(t *testing.T, s store.IStore) {
	mustCreate(t, s, "customers", map[string]any{"id": "C1", "name": "alice smith", "email": "a@example.com"})
	mustCreate(t, s, "customers", map[string]any{"id": "C2", "name": "Bob", "email": "bob@alice.org"})
	mustCreate(t, s, "customers", map[string]any{"id": "C3", "name": "Carol Alice", "email": "c@example.com"})

	docs, err := s.Search("customers", "ALICE", []string{"name"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C3"}, ids(docs))

	docs, err = s.Search("customers", "alice", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2", "C3"}, ids(docs), "default fields include email")

	docs, err = s.Search("customers", "alice", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, ids(docs), "search stops at the limit in collection order")
}

func testQuery(t *testing.T, s store.IStore) {
	mustCreate(t, s, "products", map[string]any{"id": "P1", "name": "Headphones", "price": 1})
	mustCreate(t, s, "products", map[string]any{"id": "P2", "name": "Case"})
	mustCreate(t, s, "products", map[string]any{"id": "P3", "name": "Cable", "price": 19.99})
	mustCreate(t, s, "products", map[string]any{"id": "P4", "name": "Charger", "price": 5})

	page, err := s.Query("products", query.Spec{
		OrderBy: []query.SortColumn{{Field: "price"}},
		Top:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"P2", "P1"}, ids(page.Results), "missing price sorts first")
	assert.Equal(t, 4, page.TotalRecordsCount)
	assert.True(t, page.HasNextPage)
	assert.False(t, page.HasPreviousPage)

	page, err = s.Query("products", query.Spec{
		Search:  &query.SearchSpec{Text: "c", Fields: []string{"name"}},
		OrderBy: []query.SortColumn{{Field: "name", IsDescending: true}},
		Skip:    1,
		Top:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalRecordsCount)
	assert.Equal(t, []string{"P2", "P3"}, ids(page.Results))
	assert.True(t, page.HasPreviousPage)
	assert.False(t, page.HasNextPage)
	assert.Equal(t, 1, page.Skip)
	assert.Equal(t, 5, page.Top)

	page, err = s.Query("products", query.Spec{Filters: query.Filters{"name": doc.Str("Case")}})
	require.NoError(t, err)
	assert.Equal(t, query.DefaultTop, page.Top)
	assert.Equal(t, []string{"P2"}, ids(page.Results))
}

func testApplyCart(t *testing.T, s store.IStore) {
	id := mustCreate(t, s, "carts", map[string]any{
		"lines": []any{
			map[string]any{"id": "LINE001", "product_id": "P1", "quantity": 2, "unit_price": 10, "line_total": 20},
		},
	})

	cart, found, err := s.Apply("carts", id, aggregate.AddLines(aggregate.CartLine{ProductID: "P1", Quantity: 3}))
	require.NoError(t, err)
	require.True(t, found)

	lines, _ := cart.GetList("lines")
	require.Len(t, lines, 1)
	line, _ := lines[0].AsDocument()
	assert.Equal(t, 5.0, number(t, line, "quantity"))
	assert.Equal(t, 50.0, number(t, line, "line_total"))
	assert.Equal(t, 50.0, number(t, cart, "subtotal"))
	assert.Equal(t, 4.0, number(t, cart, "tax_amount"))
	assert.Equal(t, 54.0, number(t, cart, "total"))

	stored, _, _ := s.Read("carts", id)
	assert.True(t, stored.Equal(cart), "Apply returns the stored document")

	_, _, err = s.Apply("carts", id, aggregate.ApplyCode("NOT-A-CODE"))
	assert.Error(t, err)
	after, _, _ := s.Read("carts", id)
	assert.True(t, after.Equal(stored), "a failed mutation writes nothing")
}

func testApplyLedger(t *testing.T, s store.IStore) {
	id := mustCreate(t, s, "loyalty_cards", map[string]any{"points_balance": 200, "transactions": []any{}})
	entry := doc.MustFromMap(map[string]any{"id": "LOYT001", "points": 100, "type": "Earned"})

	card, found, err := s.Apply("loyalty_cards", id, aggregate.Ledger(entry))
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 300.0, number(t, card, "points_balance"))
	txs, _ := card.GetList("transactions")
	require.NotEmpty(t, txs)
	last, _ := txs[len(txs)-1].AsDocument()
	assert.True(t, last.Equal(entry), "the last ledger entry is the appended record")
}

func testConcurrentApply(t *testing.T, s store.IStore) {
	id := mustCreate(t, s, "loyalty_cards", map[string]any{"points_balance": 0})

	const (
		workers   = 8
		perWorker = 10
	)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, _, err := s.Apply("loyalty_cards", id, aggregate.Ledger(doc.Document{"points": doc.Int(1)}))
				if err != nil {
					t.Errorf("Apply failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	card, _, err := s.Read("loyalty_cards", id)
	require.NoError(t, err)
	txs, _ := card.GetList("transactions")
	assert.Len(t, txs, workers*perWorker)
	assert.Equal(t, float64(workers*perWorker), number(t, card, "points_balance"), "balance and ledger never diverge")
}

func testInfo(t *testing.T, s store.IStore) {
	mustCreate(t, s, "c", map[string]any{"a": 1})
	info, err := s.GetDBInfo()
	require.NoError(t, err)
	assert.NotEmpty(t, info.DbType)
	assert.NotEmpty(t, info.SupportedFeatures)
}
