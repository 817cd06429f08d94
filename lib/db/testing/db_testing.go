package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// DBFactory is a function that creates a new instance of a DocDB implementation
type DBFactory func() db.DocDB

// RunDocDBTests runs a comprehensive test suite for a DocDB implementation.
func RunDocDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Get", func(t *testing.T) {
			testInsertGet(t, factory())
		})

		t.Run("InsertionOrder", func(t *testing.T) {
			testInsertionOrder(t, factory())
		})

		t.Run("Replace", func(t *testing.T) {
			testReplace(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("DuplicateIDs", func(t *testing.T) {
			testDuplicateIDs(t, factory())
		})

		t.Run("Has&Len", func(t *testing.T) {
			testHasLen(t, factory())
		})

		t.Run("Scan", func(t *testing.T) {
			testScan(t, factory())
		})

		t.Run("UnknownCollection", func(t *testing.T) {
			testUnknownCollection(t, factory())
		})

		t.Run("Collections", func(t *testing.T) {
			testCollections(t, factory())
		})

		t.Run("NestedValues", func(t *testing.T) {
			testNestedValues(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("ConcurrentInserts", func(t *testing.T) {
			testConcurrentInserts(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.DocDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustInsert(t testing.TB, database db.DocDB, collection string, d doc.Document) {
	if err := database.Insert(collection, d); err != nil {
		t.Fatalf("Insert into %s failed: %v", collection, err)
	}
}

func newDoc(id string, fields ...any) doc.Document {
	d := doc.Document{doc.FieldID: doc.Str(id)}
	for i := 0; i+1 < len(fields); i += 2 {
		d[fields[i].(string)] = doc.MustFromAny(fields[i+1])
	}
	return d
}

func scanIDs(t testing.TB, database db.DocDB, collection string) []string {
	var ids []string
	err := database.Scan(collection, func(d doc.Document) bool {
		id, _ := d.ID()
		ids = append(ids, id)
		return true
	})
	if err != nil {
		t.Fatalf("Scan of %s failed: %v", collection, err)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertGet(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureGet)

	original := newDoc("CUST001", "name", "John Doe", "vip", true, "points", 1250)
	mustInsert(t, database, "customers", original)

	// changing the caller's document must not change the stored one
	original["name"] = doc.Str("changed")

	result, found, err := database.Get("customers", "CUST001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatalf("Expected document CUST001 to exist after Insert")
	}
	if name, _ := result.GetString("name"); name != "John Doe" {
		t.Errorf("Expected name %q, got %q", "John Doe", name)
	}
	if points, _ := result.GetNumber("points"); points != 1250 {
		t.Errorf("Expected points 1250, got %v", points)
	}

	// changing the returned document must not change the stored one
	result["name"] = doc.Str("mutated")
	again, _, _ := database.Get("customers", "CUST001")
	if name, _ := again.GetString("name"); name != "John Doe" {
		t.Errorf("Get should return a copy, not a reference to the stored document")
	}

	_, found, err = database.Get("customers", "CUST999")
	if err != nil || found {
		t.Errorf("Expected nonexistent document to return found=false, got found=%v err=%v", found, err)
	}
}

func testInsertionOrder(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureScan)

	want := []string{"C", "A", "B", "E", "D"}
	for _, id := range want {
		mustInsert(t, database, "items", newDoc(id))
	}

	if got := scanIDs(t, database, "items"); !equalIDs(got, want) {
		t.Errorf("Expected insertion order %v, got %v", want, got)
	}
}

func testReplace(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureReplace|db.FeatureGet|db.FeatureScan)

	for _, id := range []string{"A", "B", "C"} {
		mustInsert(t, database, "items", newDoc(id, "v", 1))
	}

	replaced, err := database.Replace("items", "B", newDoc("B", "v", 2))
	if err != nil || !replaced {
		t.Fatalf("Expected Replace of B to succeed, got replaced=%v err=%v", replaced, err)
	}

	d, _, _ := database.Get("items", "B")
	if v, _ := d.GetNumber("v"); v != 2 {
		t.Errorf("Expected replaced value 2, got %v", v)
	}
	if got := scanIDs(t, database, "items"); !equalIDs(got, []string{"A", "B", "C"}) {
		t.Errorf("Replace must keep the position, got order %v", got)
	}

	replaced, err = database.Replace("items", "Z", newDoc("Z"))
	if err != nil || replaced {
		t.Errorf("Expected Replace of missing document to return false, got replaced=%v err=%v", replaced, err)
	}
}

func testDelete(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureDelete|db.FeatureGet)

	mustInsert(t, database, "items", newDoc("A"))
	mustInsert(t, database, "items", newDoc("B"))

	deleted, err := database.Delete("items", "A")
	if err != nil || !deleted {
		t.Fatalf("Expected Delete of A to succeed, got deleted=%v err=%v", deleted, err)
	}
	if _, found, _ := database.Get("items", "A"); found {
		t.Errorf("Expected A to be gone after Delete")
	}
	if _, found, _ := database.Get("items", "B"); !found {
		t.Errorf("Delete of A must not affect B")
	}

	deleted, err = database.Delete("items", "A")
	if err != nil || deleted {
		t.Errorf("Expected second Delete to return false, got deleted=%v err=%v", deleted, err)
	}
}

func testDuplicateIDs(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureDelete|db.FeatureGet|db.FeatureReplace)

	mustInsert(t, database, "items", newDoc("X", "n", 1))
	mustInsert(t, database, "items", newDoc("X", "n", 2))

	d, _, _ := database.Get("items", "X")
	if n, _ := d.GetNumber("n"); n != 1 {
		t.Errorf("Expected Get to return the first match, got n=%v", n)
	}

	if replaced, _ := database.Replace("items", "X", newDoc("X", "n", 3)); !replaced {
		t.Fatalf("Expected Replace to succeed")
	}
	if n, _ := database.Len("items"); n != 2 {
		t.Errorf("Replace must not change the number of documents, got %d", n)
	}

	if deleted, _ := database.Delete("items", "X"); !deleted {
		t.Fatalf("Expected Delete to succeed")
	}
	d, found, _ := database.Get("items", "X")
	if !found {
		t.Fatalf("Expected the second document to remain after deleting the first match")
	}
	if n, _ := d.GetNumber("n"); n != 2 {
		t.Errorf("Expected remaining document n=2, got n=%v", n)
	}
}

func testHasLen(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureHas|db.FeatureScan)

	for i := 0; i < 25; i++ {
		mustInsert(t, database, "items", newDoc(fmt.Sprintf("ITEM%03d", i)))
	}

	if n, err := database.Len("items"); err != nil || n != 25 {
		t.Errorf("Expected Len 25, got %d (err=%v)", n, err)
	}
	if has, _ := database.Has("items", "ITEM010"); !has {
		t.Errorf("Expected Has(ITEM010) to be true")
	}
	if has, _ := database.Has("items", "ITEM999"); has {
		t.Errorf("Expected Has(ITEM999) to be false")
	}
}

func testScan(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureScan)

	for i := 0; i < 10; i++ {
		mustInsert(t, database, "items", newDoc(fmt.Sprint(i)))
	}

	visited := 0
	err := database.Scan("items", func(d doc.Document) bool {
		visited++
		return visited < 3
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if visited != 3 {
		t.Errorf("Expected Scan to stop after 3 documents, visited %d", visited)
	}
}

func testUnknownCollection(t *testing.T, database db.DocDB) {
	defer database.Close()

	if _, found, err := database.Get("nothing", "A"); found || err != nil {
		t.Errorf("Get on unknown collection: found=%v err=%v", found, err)
	}
	if ok, err := database.Replace("nothing", "A", newDoc("A")); ok || err != nil {
		t.Errorf("Replace on unknown collection: ok=%v err=%v", ok, err)
	}
	if ok, err := database.Delete("nothing", "A"); ok || err != nil {
		t.Errorf("Delete on unknown collection: ok=%v err=%v", ok, err)
	}
	if ok, err := database.Has("nothing", "A"); ok || err != nil {
		t.Errorf("Has on unknown collection: ok=%v err=%v", ok, err)
	}
	if n, err := database.Len("nothing"); n != 0 || err != nil {
		t.Errorf("Len on unknown collection: n=%d err=%v", n, err)
	}
	if ids := scanIDs(t, database, "nothing"); len(ids) != 0 {
		t.Errorf("Scan on unknown collection returned %v", ids)
	}
}

func testCollections(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureDelete)

	mustInsert(t, database, "products", newDoc("P1"))
	mustInsert(t, database, "carts", newDoc("C1"))
	mustInsert(t, database, "customers", newDoc("U1"))
	database.Delete("customers", "U1")

	names, err := database.Collections()
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if !equalIDs(names, []string{"carts", "products"}) {
		t.Errorf("Expected sorted non-empty collections [carts products], got %v", names)
	}
}

func testNestedValues(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureGet)

	original := doc.MustFromMap(map[string]any{
		"id": "CART001",
		"lines": []any{
			map[string]any{"id": "LINE001", "product_id": "PROD001", "quantity": 1, "unit_price": 199.99},
		},
		"address": map[string]any{"city": "Seattle", "zip": "98101"},
		"tags":    []string{"a", "b"},
		"note":    nil,
	})
	mustInsert(t, database, "carts", original)

	result, found, err := database.Get("carts", "CART001")
	if err != nil || !found {
		t.Fatalf("Expected CART001, got found=%v err=%v", found, err)
	}
	if !result.Equal(original) {
		t.Errorf("Nested document changed during storage:\nwant %v\ngot  %v", original, result)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	source := factory()
	defer source.Close()

	requireFeature(t, source, db.FeatureSave|db.FeatureLoad)

	for i := 0; i < 20; i++ {
		mustInsert(t, source, "customers", newDoc(fmt.Sprintf("CUST%03d", i), "n", i))
	}
	mustInsert(t, source, "stores", newDoc("STORE001", "inventory", map[string]any{"PROD001": 50}))

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	target := factory()
	defer target.Close()
	mustInsert(t, target, "stale", newDoc("gone"))

	if err := target.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if n, _ := target.Len("stale"); n != 0 {
		t.Errorf("Load must replace existing content, found %d stale documents", n)
	}
	if got, want := scanIDs(t, target, "customers"), scanIDs(t, source, "customers"); !equalIDs(got, want) {
		t.Errorf("Order changed by Save/Load: want %v got %v", want, got)
	}
	d, found, _ := target.Get("stores", "STORE001")
	if !found {
		t.Fatalf("Expected STORE001 after Load")
	}
	inv, _ := d.GetDocument("inventory")
	if qty, _ := inv.GetNumber("PROD001"); qty != 50 {
		t.Errorf("Expected inventory 50 after Load, got %v", qty)
	}

	if err := target.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Load of an invalid snapshot to fail")
	}
}

func testConcurrentInserts(t *testing.T, database db.DocDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureInsert|db.FeatureScan)

	const (
		workers   = 8
		perWorker = 50
	)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				collection := fmt.Sprintf("col-%d", i%3)
				if err := database.Insert(collection, newDoc(fmt.Sprintf("%d-%d", w, i))); err != nil {
					t.Errorf("Insert failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 3; i++ {
		n, _ := database.Len(fmt.Sprintf("col-%d", i))
		total += n
	}
	if total != workers*perWorker {
		t.Errorf("Expected %d documents, got %d", workers*perWorker, total)
	}
}

func testInfo(t *testing.T, database db.DocDB) {
	defer database.Close()

	mustInsert(t, database, "items", newDoc("A", "name", "something"))

	info := database.GetInfo()
	if info.DbType == "" {
		t.Errorf("Expected a db type")
	}
	if len(info.SupportedFeatures) == 0 {
		t.Errorf("Expected supported features")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Feature %s listed in info but not supported", f)
		}
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size estimate, got %d", info.SizeBytes)
	}
}
