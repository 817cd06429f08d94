package db

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplSQLite Implementation = "sqlite"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureInsert  Feature = 1 << iota // Support for Insert operations
	FeatureGet                         // Support for Get operations
	FeatureReplace                     // Support for Replace operations
	FeatureDelete                      // Support for Delete operations
	FeatureHas                         // Support for Has operations
	FeatureScan                        // Support for Scan and Len operations
	FeatureSave                        // Support for Save operations
	FeatureLoad                        // Support for Load operations
)

func (f Feature) String() string {
	switch f {
	case FeatureInsert:
		return "Insert"
	case FeatureGet:
		return "Get"
	case FeatureReplace:
		return "Replace"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureScan:
		return "Scan"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

// MarshalText renders a feature by name in JSON output.
func (f Feature) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Feature) UnmarshalText(text []byte) error {
	for c := FeatureInsert; c <= FeatureLoad; c <<= 1 {
		if c.String() == string(text) {
			*f = c
			return nil
		}
	}
	return fmt.Errorf("unknown feature %q", text)
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// DocDB defines an interface for document database implementations.
// A DocDB holds named collections; each collection is an insertion-ordered
// sequence of documents identified by their "id" field.
// Collections come into existence with their first Insert. Every method accepts
// collection names that were never used and treats them as empty collections.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type DocDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Insert appends a document to the end of the collection.
	// The database keeps its own copy, later changes to d are not visible.
	// Uniqueness of ids is not checked; callers take care of that.
	Insert(collection string, d doc.Document) (err error)

	// Replace overwrites the first document with the given id. It returns false if no such document exists.
	// The document keeps its position in the collection.
	Replace(collection, id string, d doc.Document) (replaced bool, err error)

	// Delete removes the first document with the given id. It returns false if no such document exists.
	Delete(collection, id string) (deleted bool, err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns a copy of the first document with the given id.
	// The boolean return value indicates whether a document was found.
	Get(collection, id string) (d doc.Document, found bool, err error)

	// Has checks whether a document with the given id exists.
	Has(collection, id string) (found bool, err error)

	// Len returns the number of documents in the collection.
	Len(collection string) (n int, err error)

	// Scan calls fn for every document of the collection in insertion order until fn returns false.
	// The documents passed to fn are read-only views and must be cloned before they are modified or retained.
	// fn must not call back into the database.
	Scan(collection string, fn func(d doc.Document) bool) (err error)

	// Collections returns the names of all non-empty collections, sorted.
	Collections() (names []string, err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer
	// in the snapshot format of this package (see EncodeSnapshot).
	Save(w io.Writer) (err error)

	// Load replaces the database state with a snapshot read from the io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}
