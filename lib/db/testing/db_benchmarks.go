package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// RunDocDBBenchmarks runs all benchmarks for a document database implementation
func RunDocDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Insert", func(b *testing.B) {
		benchmarkInsert(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Replace", func(b *testing.B) {
		benchmarkReplace(b, factory())
	})

	b.Run("Scan", func(b *testing.B) {
		benchmarkScan(b, factory())
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// benchDoc builds a small product-like document
func benchDoc(i int) doc.Document {
	return doc.Document{
		doc.FieldID:   doc.Str(fmt.Sprintf("PROD%06d", i)),
		"name":        doc.Str(fmt.Sprintf("Product %d", i)),
		"price":       doc.Num(float64(i%1000) + 0.99),
		"category_id": doc.Str(fmt.Sprintf("CAT%03d", i%20)),
		"tags":        doc.List(doc.Str("bench"), doc.Int(i%7)),
	}
}

// fill inserts n documents into the "products" collection
func fill(b *testing.B, database db.DocDB, n int) {
	for i := 0; i < n; i++ {
		if err := database.Insert("products", benchDoc(i)); err != nil {
			b.Fatalf("Insert failed: %v", err)
		}
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Insert operation
func benchmarkInsert(b *testing.B, database db.DocDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureInsert)

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(counter.Add(1))
			database.Insert(fmt.Sprintf("col-%d", i%8), benchDoc(i))
		}
	})
}

// Benchmark for Get operation, the lookup position is random
func benchmarkGet(b *testing.B, database db.DocDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureInsert|db.FeatureGet)

	const numDocs = 1000
	fill(b, database, numDocs)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			database.Get("products", fmt.Sprintf("PROD%06d", r.Intn(numDocs)))
		}
	})
}

// Benchmark for Replace operation
func benchmarkReplace(b *testing.B, database db.DocDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureInsert|db.FeatureReplace)

	const numDocs = 1000
	fill(b, database, numDocs)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := benchDoc(i % numDocs)
		database.Replace("products", fmt.Sprintf("PROD%06d", i%numDocs), d)
	}
}

// Benchmark for a full collection Scan (the access pattern of List, Search and Query)
func benchmarkScan(b *testing.B, database db.DocDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureInsert|db.FeatureScan)

	fill(b, database, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count := 0
		database.Scan("products", func(d doc.Document) bool {
			if _, ok := d["price"]; ok {
				count++
			}
			return true
		})
	}
}

func benchmarkSaveLoad(b *testing.B, factory DBFactory) {

	database := factory()

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureInsert|db.FeatureSave|db.FeatureLoad)

	// Create a database with some data
	fill(b, database, 5000)

	b.Run("Save", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			database.Save(&buf)
		}
	})

	// Prepare a data buffer for Load benchmark
	var loadBuf bytes.Buffer
	database.Save(&loadBuf)
	data := loadBuf.Bytes()

	b.Run("Load", func(b *testing.B) {
		loadDB := factory()
		defer loadDB.Close()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			loadDB.Load(bytes.NewReader(data))
		}
	})
}

// Benchmark for mixed operations (70% reads, 20% replaces, 10% inserts)
func benchmarkMixedUsage(b *testing.B, database db.DocDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureInsert|db.FeatureGet|db.FeatureReplace)

	const numDocs = 1000
	fill(b, database, numDocs)

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			i := r.Intn(numDocs)
			switch op := r.Intn(10); {
			case op < 7:
				database.Get("products", fmt.Sprintf("PROD%06d", i))
			case op < 9:
				database.Replace("products", fmt.Sprintf("PROD%06d", i), benchDoc(i))
			default:
				database.Insert("orders", benchDoc(int(counter.Add(1))))
			}
		}
	})
}
