package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/db"
	dbtesting "github.com/ValentinKolb/dCommerce/lib/db/testing"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/stretchr/testify/require"
)

func factory() db.DocDB {
	database, err := NewSQLiteDB(MemoryPath)
	if err != nil {
		panic(err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunDocDBTests(t, "SQLiteDB", factory)
}

func Benchmark(t *testing.B) {
	dbtesting.RunDocDBBenchmarks(t, "SQLiteDB", factory)
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shard.db")

	first, err := NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, first.Insert("customers", doc.Document{"id": doc.Str("CUST001"), "name": doc.Str("John")}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteDB(path)
	require.NoError(t, err)
	defer second.Close()

	d, found, err := second.Get("customers", "CUST001")
	require.NoError(t, err)
	require.True(t, found)
	name, _ := d.GetString("name")
	require.Equal(t, "John", name)
}
