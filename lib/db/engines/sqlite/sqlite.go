package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/db/util"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database that is dropped on Close.
const MemoryPath = ":memory:"

// sqliteImpl stores all collections in a single SQLite table.
//
// Tables:
//
//	documents(seq, collection, id, data)  seq INTEGER PRIMARY KEY AUTOINCREMENT
//
// seq keeps the insertion order; data is the JSON encoded document.
type sqliteImpl struct {
	path string
	db   *sql.DB
}

// NewSQLiteDB opens (or creates) the database file at path.
// Use MemoryPath for a database that lives only as long as the returned DocDB.
func NewSQLiteDB(path string) (db.DocDB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one connection: serializes access and keeps a :memory: database alive
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL
	)`); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("CREATE INDEX IF NOT EXISTS documents_collection_id ON documents (collection, id)"); err != nil {
		conn.Close()
		return nil, err
	}

	return &sqliteImpl{path: path, db: conn}, nil
}

func encode(d doc.Document) (id string, data string, err error) {
	id, _ = d.ID()
	b, err := json.Marshal(d)
	if err != nil {
		return "", "", fmt.Errorf("encode document: %w", err)
	}
	return id, string(b), nil
}

func decode(raw string) (doc.Document, error) {
	d, err := doc.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.DocDB)
// --------------------------------------------------------------------------

func (s *sqliteImpl) Insert(collection string, d doc.Document) error {
	id, data, err := encode(d)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)", collection, id, data)
	return err
}

func (s *sqliteImpl) Replace(collection, id string, d doc.Document) (bool, error) {
	newID, data, err := encode(d)
	if err != nil {
		return false, err
	}
	res, err := s.db.Exec(`UPDATE documents SET id = ?, data = ? WHERE seq = (
		SELECT seq FROM documents WHERE collection = ? AND id = ? ORDER BY seq LIMIT 1
	)`, newID, data, collection, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteImpl) Delete(collection, id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM documents WHERE seq = (
		SELECT seq FROM documents WHERE collection = ? AND id = ? ORDER BY seq LIMIT 1
	)`, collection, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteImpl) Get(collection, id string) (doc.Document, bool, error) {
	var raw string
	err := s.db.QueryRow(
		"SELECT data FROM documents WHERE collection = ? AND id = ? ORDER BY seq LIMIT 1",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	d, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (s *sqliteImpl) Has(collection, id string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM documents WHERE collection = ? AND id = ? LIMIT 1", collection, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *sqliteImpl) Len(collection string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&n)
	return n, err
}

// Scan reads the whole collection before calling fn, so fn runs without an open cursor.
func (s *sqliteImpl) Scan(collection string, fn func(d doc.Document) bool) error {
	docs, err := s.all(collection)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if !fn(d) {
			return nil
		}
	}
	return nil
}

func (s *sqliteImpl) all(collection string) ([]doc.Document, error) {
	rows, err := s.db.Query("SELECT data FROM documents WHERE collection = ? ORDER BY seq", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []doc.Document
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *sqliteImpl) Collections() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT collection FROM documents ORDER BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqliteImpl) Save(w io.Writer) error {
	names, err := s.Collections()
	if err != nil {
		return err
	}
	snapshot := make([]db.SnapshotCollection, 0, len(names))
	for _, name := range names {
		docs, err := s.all(name)
		if err != nil {
			return err
		}
		snapshot = append(snapshot, db.SnapshotCollection{Name: name, Docs: docs})
	}
	return db.EncodeSnapshot(w, snapshot)
}

// Load replaces the table content in one transaction.
func (s *sqliteImpl) Load(r io.Reader) error {
	snapshot, err := db.DecodeSnapshot(r)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM documents"); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range snapshot {
		for _, d := range c.Docs {
			id, data, err := encode(d)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(c.Name, id, data); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *sqliteImpl) SupportsFeature(feature db.Feature) bool {
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

func (s *sqliteImpl) GetInfo() db.DatabaseInfo {
	meta := &struct {
		Path                   string               `json:"path"`
		Collections            []string             `json:"collections"`
		DocumentCount          int                  `json:"document_count"`
		CollectionDistribution util.CollectionStats `json:"collection_distribution"`
		Error                  string               `json:"error,omitempty"`
	}{Path: s.path}

	var sizeBytes int
	err := func() error {
		if err := s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM documents").
			Scan(&meta.DocumentCount, &sizeBytes); err != nil {
			return err
		}

		rows, err := s.db.Query("SELECT collection, COUNT(*) FROM documents GROUP BY collection ORDER BY collection")
		if err != nil {
			return err
		}
		defer rows.Close()
		var counts []int64
		for rows.Next() {
			var (
				name string
				n    int64
			)
			if err := rows.Scan(&name, &n); err != nil {
				return err
			}
			meta.Collections = append(meta.Collections, name)
			counts = append(counts, n)
		}
		meta.CollectionDistribution = util.NewCollectionStats(counts)
		return rows.Err()
	}()
	if err != nil {
		meta.Error = err.Error()
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		DbType:    db.ImplSQLite,
		SupportedFeatures: []db.Feature{
			db.FeatureInsert, db.FeatureReplace, db.FeatureDelete,
			db.FeatureGet, db.FeatureHas, db.FeatureScan,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

func (s *sqliteImpl) Close() error {
	return s.db.Close()
}
