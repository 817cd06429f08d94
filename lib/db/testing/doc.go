// Package testing is the conformance suite every db.DocDB engine runs.
//
// RunDocDBTests checks the contract engines must honor: returned documents are
// copies, scans follow insertion order, lookups return the first match, unknown
// collections behave like empty ones and snapshots restore the exact state.
// RunDocDBBenchmarks measures the common operations.
//
//	func TestMaple(t *testing.T) {
//		dbtesting.RunDocDBTests(t, "maple", func() db.DocDB { return maple.NewMapleDB(nil) })
//	}
package testing
