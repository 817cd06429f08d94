package lstore

import (
	"sync"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/lib/store/docops"
)

type storeImpl struct {
	mu  sync.Mutex
	db  db.DocDB
	now func() time.Time
}

// Option configures a local store.
type Option func(*storeImpl)

// WithClock replaces the wall clock used for createdAt and modifiedAt.
func WithClock(now func() time.Time) Option {
	return func(s *storeImpl) {
		s.now = now
	}
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// A single mutex is held for the whole duration of every operation.
func NewLocalStore(factory store.DBFactory, opts ...Option) (store.IStore, error) {
	database, err := factory()
	if err != nil {
		return nil, err
	}
	s := &storeImpl{
		db:  database,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Create(collection string, fields doc.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Create(s.db, collection, fields, s.now())
}

func (s *storeImpl) Read(collection, id string) (doc.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Read(s.db, collection, id)
}

func (s *storeImpl) Update(collection, id string, partial doc.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Update(s.db, collection, id, partial, s.now())
}

func (s *storeImpl) Delete(collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Delete(s.db, collection, id)
}

func (s *storeImpl) List(collection string, limit, offset int, filters query.Filters) ([]doc.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.List(s.db, collection, limit, offset, filters)
}

func (s *storeImpl) Search(collection, text string, fields []string, limit int) ([]doc.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Search(s.db, collection, text, fields, limit)
}

func (s *storeImpl) Count(collection string, filters query.Filters) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Count(s.db, collection, filters)
}

func (s *storeImpl) Query(collection string, spec query.Spec) (query.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Query(s.db, collection, spec)
}

func (s *storeImpl) Apply(collection, id string, m aggregate.Mutation) (doc.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docops.Apply(s.db, collection, id, m, s.now())
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.GetInfo(), nil
}
