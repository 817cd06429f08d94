package internal

import (
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
)

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTRead      QueryType = iota // Retrieve a document by id.
	QueryTList                       // List documents matching filters.
	QueryTSearch                     // Free-text search over some fields.
	QueryTCount                      // Count documents matching filters.
	QueryTQuery                      // Filter, search, sort and page a collection.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTRead:
		return "Read"
	case QueryTList:
		return "List"
	case QueryTSearch:
		return "Search"
	case QueryTCount:
		return "Count"
	case QueryTQuery:
		return "Query"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or ReadStale.
// Only the fields of the respective query type are set.
type Query struct {
	Type       QueryType // The type of Query to perform.
	Collection string
	ID         string        // Read
	Filters    query.Filters // List, Count
	Limit      int           // List, Search
	Offset     int           // List
	Text       string        // Search
	Fields     []string      // Search
	Spec       query.Spec    // Query
}

// ReadResult is the result of a QueryTRead operation.
// All other query results are slices or predefined structs ([]doc.Document, int, query.Page, db.DatabaseInfo).
type ReadResult struct {
	Found    bool
	Document doc.Document
}
