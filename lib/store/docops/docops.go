package docops

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
)

const (
	idPrefixLen = 4
	TimeLayout  = time.RFC3339Nano
)

// Timestamp formats t the way createdAt and modifiedAt are stored.
func Timestamp(t time.Time) doc.Value {
	return doc.Str(t.UTC().Format(TimeLayout))
}

// require returns a store error if the database lacks one of the features.
func require(database db.DocDB, feature db.Feature, op string) error {
	if !database.SupportsFeature(feature) {
		return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
	}
	return nil
}

func internalError(op string, err error) error {
	return store.NewError(store.RetCInternalError, fmt.Sprintf("%s: %v", op, err))
}

// --------------------------------------------------------------------------
// Id generation
// --------------------------------------------------------------------------

// IDPrefix returns the first four letters of the collection name, upper-cased.
func IDPrefix(collection string) string {
	r := []rune(strings.ToUpper(collection))
	if len(r) > idPrefixLen {
		r = r[:idPrefixLen]
	}
	return string(r)
}

// NextID returns the next free generated id of the collection: the prefix followed by
// len(collection)+1 as a three-digit number. If that id is taken (e.g. after a delete)
// the number is increased until the id is free.
func NextID(database db.DocDB, collection string) (string, error) {
	n, err := database.Len(collection)
	if err != nil {
		return "", err
	}
	prefix := IDPrefix(collection)
	for seq := n + 1; ; seq++ {
		id := fmt.Sprintf("%s%03d", prefix, seq)
		taken, err := database.Has(collection, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Create implements store.IStore.Create at the given time.
func Create(database db.DocDB, collection string, fields doc.Document, now time.Time) (string, error) {
	if err := require(database, db.FeatureInsert|db.FeatureHas|db.FeatureScan, "Create"); err != nil {
		return "", err
	}

	d := fields.Clone()
	if d == nil {
		d = doc.Document{}
	}

	id, ok := d.ID()
	if !ok || id == "" {
		var err error
		if id, err = NextID(database, collection); err != nil {
			return "", internalError("Create", err)
		}
		d[doc.FieldID] = doc.Str(id)
	}
	ts := Timestamp(now)
	d[doc.FieldCreatedAt] = ts
	d[doc.FieldModifiedAt] = ts

	if err := database.Insert(collection, d); err != nil {
		return "", internalError("Create", err)
	}
	return id, nil
}

// Update implements store.IStore.Update at the given time.
func Update(database db.DocDB, collection, id string, partial doc.Document, now time.Time) (bool, error) {
	if err := require(database, db.FeatureGet|db.FeatureReplace, "Update"); err != nil {
		return false, err
	}

	current, found, err := database.Get(collection, id)
	if err != nil {
		return false, internalError("Update", err)
	}
	if !found {
		return false, nil
	}

	current.Merge(partial, doc.FieldID, doc.FieldCreatedAt, doc.FieldModifiedAt)
	current[doc.FieldModifiedAt] = Timestamp(now)

	replaced, err := database.Replace(collection, id, current)
	if err != nil {
		return false, internalError("Update", err)
	}
	return replaced, nil
}

// Delete implements store.IStore.Delete.
func Delete(database db.DocDB, collection, id string) (bool, error) {
	if err := require(database, db.FeatureDelete, "Delete"); err != nil {
		return false, err
	}
	deleted, err := database.Delete(collection, id)
	if err != nil {
		return false, internalError("Delete", err)
	}
	return deleted, nil
}

// Apply implements store.IStore.Apply at the given time.
// The mutation runs on a copy; nothing is written if it fails.
func Apply(database db.DocDB, collection, id string, m aggregate.Mutation, now time.Time) (doc.Document, bool, error) {
	if err := require(database, db.FeatureGet|db.FeatureReplace, "Apply"); err != nil {
		return nil, false, err
	}

	current, found, err := database.Get(collection, id)
	if err != nil {
		return nil, false, internalError("Apply", err)
	}
	if !found {
		return nil, false, nil
	}

	if err := m.Apply(current); err != nil {
		return nil, true, fmt.Errorf("apply %s to %s/%s: %w", m.Type, collection, id, err)
	}
	current[doc.FieldModifiedAt] = Timestamp(now)

	if _, err := database.Replace(collection, id, current); err != nil {
		return nil, false, internalError("Apply", err)
	}
	return current.Clone(), true, nil
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Read implements store.IStore.Read.
func Read(database db.DocDB, collection, id string) (doc.Document, bool, error) {
	if err := require(database, db.FeatureGet, "Read"); err != nil {
		return nil, false, err
	}
	d, found, err := database.Get(collection, id)
	if err != nil {
		return nil, false, internalError("Read", err)
	}
	return d, found, nil
}

// collect scans the collection and returns copies of the matching documents,
// skipping the first skip matches and stopping after limit (limit < 0 means no limit).
func collect(database db.DocDB, collection string, match func(doc.Document) bool, skip, limit int) ([]doc.Document, error) {
	docs := []doc.Document{}
	if limit == 0 {
		return docs, nil
	}
	err := database.Scan(collection, func(d doc.Document) bool {
		if !match(d) {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		docs = append(docs, d.Clone())
		return limit < 0 || len(docs) < limit
	})
	return docs, err
}

// List implements store.IStore.List.
func List(database db.DocDB, collection string, limit, offset int, filters query.Filters) ([]doc.Document, error) {
	if err := require(database, db.FeatureScan, "List"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = query.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := collect(database, collection, filters.Matches, offset, limit)
	if err != nil {
		return nil, internalError("List", err)
	}
	return docs, nil
}

// Search implements store.IStore.Search. The scan stops as soon as limit documents matched.
func Search(database db.DocDB, collection, text string, fields []string, limit int) ([]doc.Document, error) {
	if err := require(database, db.FeatureScan, "Search"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = query.DefaultLimit
	}
	spec := query.SearchSpec{Text: text, Fields: fields}
	docs, err := collect(database, collection, spec.Matcher(), 0, limit)
	if err != nil {
		return nil, internalError("Search", err)
	}
	return docs, nil
}

// Count implements store.IStore.Count.
func Count(database db.DocDB, collection string, filters query.Filters) (int, error) {
	if err := require(database, db.FeatureScan, "Count"); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		n, err := database.Len(collection)
		if err != nil {
			return 0, internalError("Count", err)
		}
		return n, nil
	}
	n := 0
	err := database.Scan(collection, func(d doc.Document) bool {
		if filters.Matches(d) {
			n++
		}
		return true
	})
	if err != nil {
		return 0, internalError("Count", err)
	}
	return n, nil
}

// Query implements store.IStore.Query. Unlike Search it scans the whole collection,
// since the envelope reports the total number of matches.
func Query(database db.DocDB, collection string, spec query.Spec) (query.Page, error) {
	if err := require(database, db.FeatureScan, "Query"); err != nil {
		return query.Page{}, err
	}
	matched, err := collect(database, collection, spec.Matcher(), 0, -1)
	if err != nil {
		return query.Page{}, internalError("Query", err)
	}
	return spec.Run(matched), nil
}
