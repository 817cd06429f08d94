package doc

import (
	"encoding/json"
	"fmt"
)

// Field names owned by the store.
const (
	FieldID         = "id"
	FieldCreatedAt  = "createdAt"
	FieldModifiedAt = "modifiedAt"
)

// Document is a schema-less record: a mapping from field name to Value.
type Document map[string]Value

// FromMap converts a plain map (e.g. decoded JSON) into a Document.
func FromMap(m map[string]any) (Document, error) {
	d := make(Document, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		d[k] = v
	}
	return d, nil
}

// MustFromMap is like FromMap but panics on unsupported input.
func MustFromMap(m map[string]any) Document {
	d, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return d
}

// Decode parses a JSON object into a Document.
func Decode(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d == nil {
		d = Document{}
	}
	return d, nil
}

// DecodeList parses a JSON array of objects.
func DecodeList(data []byte) ([]Document, error) {
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// Encode renders the document as JSON.
func (d Document) Encode() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(d))
}

// ToMap converts the document into plain Go values.
func (d Document) ToMap() map[string]any {
	m := make(map[string]any, len(d))
	for k, v := range d {
		m[k] = v.ToAny()
	}
	return m
}

// --------------------------------------------------------------------------
// Accessors (the boolean result reports presence and kind)
// --------------------------------------------------------------------------

// Get returns the value of field and whether the field is present.
func (d Document) Get(field string) (Value, bool) {
	v, ok := d[field]
	return v, ok
}

// ID returns the document id.
func (d Document) ID() (string, bool) { return d.GetString(FieldID) }

func (d Document) GetString(field string) (string, bool) {
	v, ok := d[field]
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (d Document) GetNumber(field string) (float64, bool) {
	v, ok := d[field]
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

func (d Document) GetBool(field string) (bool, bool) {
	v, ok := d[field]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

func (d Document) GetList(field string) ([]Value, bool) {
	v, ok := d[field]
	if !ok {
		return nil, false
	}
	return v.AsList()
}

func (d Document) GetDocument(field string) (Document, bool) {
	v, ok := d[field]
	if !ok {
		return nil, false
	}
	return v.AsDocument()
}

// --------------------------------------------------------------------------
// Mutation helpers
// --------------------------------------------------------------------------

// Clone returns a deep copy. A nil document clones to nil.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v.Clone()
	}
	return c
}

// Merge copies every top-level field of partial into d, replacing existing fields entirely.
// Fields listed in skip are left untouched.
func (d Document) Merge(partial Document, skip ...string) {
outer:
	for k, v := range partial {
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		d[k] = v.Clone()
	}
}

// Equal reports deep equality.
func (d Document) Equal(o Document) bool {
	return Map(d).Equal(Map(o))
}
