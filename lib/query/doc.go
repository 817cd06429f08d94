// Package query is the read-only query layer of the store. It never mutates a
// document; it only selects and orders them.
//
// The pipeline is: equality Filters, then free-text SearchSpec, then a single
// column Sort, then Paginate into a Page envelope:
//
//	{totalRecordsCount, skip, top, hasNextPage, hasPreviousPage, results}
//
// with hasNextPage = skip+top < totalRecordsCount and hasPreviousPage = skip > 0.
//
// Missing-field policy for sorting: a document lacking the sort field (or holding
// null) sorts as the zero value of the column ("" / 0 / false). Ascending, such a
// document therefore comes before every document holding a positive number, a
// non-empty string or true.
package query
