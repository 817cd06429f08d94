package commerce

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedData parses the embedded demo data set into documents per collection.
func SeedData() (map[string][]doc.Document, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed parses a YAML mapping of collection name to a list of documents.
func ParseSeed(data []byte) (map[string][]doc.Document, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	seed := make(map[string][]doc.Document, len(raw))
	for collection, items := range raw {
		docs := make([]doc.Document, 0, len(items))
		for i, item := range items {
			d, err := doc.FromMap(item)
			if err != nil {
				return nil, fmt.Errorf("seed %s[%d]: %w", collection, i, err)
			}
			docs = append(docs, d)
		}
		seed[collection] = docs
	}
	return seed, nil
}

// LoadSeed writes the embedded demo data set into s and returns the number of documents created.
// Collections are loaded in alphabetical order, documents in file order.
func LoadSeed(s store.IStore) (int, error) {
	seed, err := SeedData()
	if err != nil {
		return 0, err
	}
	return Load(s, seed)
}

// Load writes the documents of every collection into s.
func Load(s store.IStore, seed map[string][]doc.Document) (int, error) {
	collections := make([]string, 0, len(seed))
	for c := range seed {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	created := 0
	for _, c := range collections {
		for _, d := range seed[c] {
			if _, err := s.Create(c, d); err != nil {
				return created, fmt.Errorf("seed %s: %w", c, err)
			}
			created++
		}
		log.Debugf("seeded %d documents into %s", len(seed[c]), c)
	}
	return created, nil
}
