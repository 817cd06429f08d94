package maple

import (
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/db"
	dbtesting "github.com/ValentinKolb/dCommerce/lib/db/testing"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func Test(t *testing.T) {
	dbtesting.RunDocDBTests(t, "MapleDB", func() db.DocDB {
		return NewMapleDB(nil)
	})
}

func Benchmark(t *testing.B) {
	dbtesting.RunDocDBBenchmarks(t, "MapleDB", func() db.DocDB {
		return NewMapleDB(nil)
	})
}
