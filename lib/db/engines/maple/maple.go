package maple

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dCommerce/lib/db/util"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultInfoSamples = 100 // documents sampled per collection by GetInfo
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory document database.
// Collections live in a concurrent map; each collection has its own lock,
// so operations on different collections never contend.
type mapleImpl struct {
	collections *xsync.MapOf[string, *internal.Collection]
	infoSamples int
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	InfoSamples int // Documents per collection sampled by GetInfo (0 = use default: 100)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		InfoSamples: defaultInfoSamples,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.DocDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.InfoSamples <= 0 {
		opts.InfoSamples = defaultInfoSamples
	}

	return &mapleImpl{
		collections: xsync.NewMapOf[string, *internal.Collection](),
		infoSamples: opts.InfoSamples,
	}
}

// collection returns the collection with the given name, or nil if it was never written.
func (maple *mapleImpl) collection(name string) *internal.Collection {
	c, _ := maple.collections.Load(name)
	return c
}

// --------------------------------------------------------------------------
// Core DocDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Insert appends a copy of d to the collection, creating the collection if needed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Insert(collection string, d doc.Document) error {
	c, _ := maple.collections.LoadOrCompute(collection, func() *internal.Collection {
		return internal.NewCollection()
	})
	c.Append(d.Clone())
	return nil
}

// Replace swaps the first document with the given id for a copy of d.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Replace(collection, id string, d doc.Document) (bool, error) {
	c := maple.collection(collection)
	if c == nil {
		return false, nil
	}
	return c.Replace(id, d.Clone()), nil
}

// Delete removes the first document with the given id.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(collection, id string) (bool, error) {
	c := maple.collection(collection)
	if c == nil {
		return false, nil
	}
	return c.Delete(id), nil
}

// --------------------------------------------------------------------------
// Core DocDB Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Get returns a copy of the first document with the given id.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(collection, id string) (doc.Document, bool, error) {
	c := maple.collection(collection)
	if c == nil {
		return nil, false, nil
	}
	d, ok := c.Get(id)
	if !ok {
		return nil, false, nil
	}
	return d.Clone(), true, nil
}

// Has checks whether a document with the given id exists.
func (maple *mapleImpl) Has(collection, id string) (bool, error) {
	c := maple.collection(collection)
	if c == nil {
		return false, nil
	}
	_, ok := c.Get(id)
	return ok, nil
}

// Len returns the number of documents in the collection.
func (maple *mapleImpl) Len(collection string) (int, error) {
	c := maple.collection(collection)
	if c == nil {
		return 0, nil
	}
	return c.Len(), nil
}

// Scan iterates over the collection in insertion order. The collection's read lock is held
// during the iteration, so writes to the same collection wait until Scan returns.
func (maple *mapleImpl) Scan(collection string, fn func(d doc.Document) bool) error {
	c := maple.collection(collection)
	if c == nil {
		return nil
	}
	c.Range(fn)
	return nil
}

// Collections returns the sorted names of all non-empty collections.
func (maple *mapleImpl) Collections() ([]string, error) {
	var names []string
	maple.collections.Range(func(name string, c *internal.Collection) bool {
		if c.Len() > 0 {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names, nil
}

// --------------------------------------------------------------------------
// DocDB Interface Implementation - Persistence
// --------------------------------------------------------------------------

// Save writes a snapshot of all collections.
// Each collection is captured atomically, but collections are captured one after another.
// Callers that need a consistent snapshot across collections must stop writes while saving.
func (maple *mapleImpl) Save(w io.Writer) error {
	names, _ := maple.Collections()
	snapshot := make([]db.SnapshotCollection, 0, len(names))
	for _, name := range names {
		snapshot = append(snapshot, db.SnapshotCollection{
			Name: name,
			Docs: maple.collection(name).Docs(),
		})
	}
	return db.EncodeSnapshot(w, snapshot)
}

// Load replaces the whole database content with a snapshot.
// On error the current content is left untouched.
func (maple *mapleImpl) Load(r io.Reader) error {
	snapshot, err := db.DecodeSnapshot(r)
	if err != nil {
		return err
	}

	maple.collections.Clear()
	for _, c := range snapshot {
		if len(c.Docs) == 0 {
			continue
		}
		maple.collections.Store(c.Name, internal.NewCollection(c.Docs...))
	}
	return nil
}

// --------------------------------------------------------------------------
// DocDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {

	sizeEstimator := util.NewSizeEstimator()
	var (
		names      []string
		counts     []int64
		totalCount int
	)

	maple.collections.Range(func(name string, c *internal.Collection) bool {
		n := c.Len()
		if n == 0 {
			return true
		}
		names = append(names, name)
		counts = append(counts, int64(n))
		totalCount += n

		// only sample a few documents per collection
		count := 0
		c.Range(func(d doc.Document) bool {
			if data, err := json.Marshal(d); err == nil {
				sizeEstimator.Add(len(data))
			}
			count++
			return count < maple.infoSamples
		})
		return true
	})
	sort.Strings(names)

	avgDocSize := sizeEstimator.Estimate()

	// Metadata for this specific database implementation
	meta := &struct {
		Collections            []string             `json:"collections"`
		DocumentCount          int                  `json:"document_count"`
		CollectionDistribution util.CollectionStats `json:"collection_distribution"`
		Info                   string               `json:"info"`
	}{
		Collections:            names,
		DocumentCount:          totalCount,
		CollectionDistribution: util.NewCollectionStats(counts),
		Info:                   "SizeBytes is an estimate based on a sample of JSON encoded documents.",
	}

	// features
	supportedFeatures := []db.Feature{
		db.FeatureInsert, db.FeatureReplace, db.FeatureDelete,
		db.FeatureGet, db.FeatureHas, db.FeatureScan,
		db.FeatureSave, db.FeatureLoad,
	}

	return db.DatabaseInfo{
		SizeBytes:         avgDocSize * totalCount,
		DbType:            db.ImplMaple,
		SupportedFeatures: supportedFeatures,
		Metadata:          meta,
	}
}

// SupportsFeature checks if this implementation supports a specific DocDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureInsert |
		db.FeatureGet |
		db.FeatureReplace |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureScan |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close drops all collections
func (maple *mapleImpl) Close() error {
	maple.collections.Clear()
	return nil
}
