package store

import (
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() (db.DocDB, error)

// IStore is the generic interface for interacting with a document store.
//
// A missing document or collection is never an error: read-like operations report it
// with found=false, an empty slice or a zero count. The error return is reserved for
// failures of the store itself (engine, transport, consensus) and for invalid requests.
//
// Every document returned is a copy owned by the caller.
type IStore interface {
	// Create stores a new document in the collection and returns its id.
	// If fields has no string "id" one is generated from the collection name
	// (first four letters, upper-cased, plus a three-digit sequence, e.g. CUST003).
	// createdAt and modifiedAt are set to the current time.
	Create(collection string, fields doc.Document) (id string, err error)
	// Read returns the document with the given id. The boolean return value indicates whether it was found.
	Read(collection, id string) (d doc.Document, found bool, err error)
	// Update merges partial into the document: top-level fields present in partial replace
	// the stored ones, all others are kept. id, createdAt and modifiedAt in partial are ignored;
	// modifiedAt is refreshed. Returns false if the document does not exist.
	Update(collection, id string, partial doc.Document) (updated bool, err error)
	// Delete removes the document. Returns false if it did not exist.
	Delete(collection, id string) (deleted bool, err error)
	// List returns up to limit documents matching filters, skipping the first offset matches.
	// limit <= 0 means query.DefaultLimit.
	List(collection string, limit, offset int, filters query.Filters) (docs []doc.Document, err error)
	// Search returns up to limit documents in collection order for which text is a
	// case-insensitive substring of one of fields (query.DefaultSearchFields if empty).
	Search(collection, text string, fields []string, limit int) (docs []doc.Document, err error)
	// Count returns the number of documents matching filters.
	Count(collection string, filters query.Filters) (n int, err error)
	// Query filters, searches, sorts and pages the collection and returns the paged envelope.
	Query(collection string, spec query.Spec) (page query.Page, err error)
	// Apply runs a compound mutation on one document atomically and returns the document after the change.
	// Returns found=false if the document does not exist.
	Apply(collection, id string, m aggregate.Mutation) (d doc.Document, found bool, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
