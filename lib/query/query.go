package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultTop   = 50  // page size of Query when Top is not set
	DefaultLimit = 100 // result limit of List and Search when no limit is set
)

// DefaultSearchFields are searched when a search names no fields.
var DefaultSearchFields = []string{"name", "description", "email", "phone", "sku"}

// --------------------------------------------------------------------------
// Filters
// --------------------------------------------------------------------------

// Filters maps a field name to the exact value a document must hold.
// All entries must match (AND). A document missing a filtered field does not match.
type Filters map[string]doc.Value

// Matches reports whether d satisfies every filter.
func (f Filters) Matches(d doc.Document) bool {
	for field, want := range f {
		got, ok := d[field]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Free-text search
// --------------------------------------------------------------------------

// SearchSpec is a case-insensitive substring search over a set of fields.
type SearchSpec struct {
	Text   string   `json:"text"`
	Fields []string `json:"fields,omitempty"`
}

// Matcher returns a predicate for the search. An empty text matches every document.
func (s SearchSpec) Matcher() func(doc.Document) bool {
	needle := strings.ToLower(s.Text)
	if needle == "" {
		return func(doc.Document) bool { return true }
	}
	fields := s.Fields
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}
	return func(d doc.Document) bool {
		for _, field := range fields {
			v, ok := d[field]
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(v.Text()), needle) {
				return true
			}
		}
		return false
	}
}

// --------------------------------------------------------------------------
// Sorting
// --------------------------------------------------------------------------

// SortColumn names a field and a direction.
type SortColumn struct {
	Field        string `json:"field"`
	IsDescending bool   `json:"isDescending,omitempty"`
}

// Sort orders docs in place by the first column only; further columns are ignored.
//
// The comparison is type-aware: strings lexicographically, numbers by value,
// booleans false before true. A document missing the field (or holding null) is
// compared as the zero value of the column's kind, which is the kind of the first
// non-null value found in the column. Values of differing kinds order by doc.Kind.
// The sort is stable.
func Sort(docs []doc.Document, columns []SortColumn) {
	if len(columns) == 0 || len(docs) < 2 {
		return
	}
	col := columns[0]

	zero := doc.Null()
	for _, d := range docs {
		if v, ok := d[col.Field]; ok && !v.IsNull() {
			zero = zeroOf(v.Kind())
			break
		}
	}

	key := func(d doc.Document) doc.Value {
		v, ok := d[col.Field]
		if !ok || v.IsNull() {
			return zero
		}
		return v
	}

	slices.SortStableFunc(docs, func(a, b doc.Document) int {
		c := Compare(key(a), key(b))
		if col.IsDescending {
			return -c
		}
		return c
	})
}

// Compare orders two values. Values of different kinds order by kind.
// Lists and maps compare by their JSON text.
func Compare(a, b doc.Value) int {
	if a.Kind() != b.Kind() {
		return cmp.Compare(a.Kind(), b.Kind())
	}
	switch a.Kind() {
	case doc.KindBool:
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case doc.KindNumber:
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		return cmp.Compare(x, y)
	case doc.KindString:
		x, _ := a.AsString()
		y, _ := b.AsString()
		return strings.Compare(x, y)
	case doc.KindList, doc.KindMap:
		return strings.Compare(a.Text(), b.Text())
	default:
		return 0
	}
}

func zeroOf(k doc.Kind) doc.Value {
	switch k {
	case doc.KindBool:
		return doc.Bool(false)
	case doc.KindNumber:
		return doc.Num(0)
	case doc.KindString:
		return doc.Str("")
	case doc.KindList:
		return doc.List()
	case doc.KindMap:
		return doc.Map(nil)
	default:
		return doc.Null()
	}
}

// --------------------------------------------------------------------------
// Paging
// --------------------------------------------------------------------------

// Page is the paged-query envelope returned by every listing operation.
type Page struct {
	TotalRecordsCount int            `json:"totalRecordsCount"`
	Skip              int            `json:"skip"`
	Top               int            `json:"top"`
	HasNextPage       bool           `json:"hasNextPage"`
	HasPreviousPage   bool           `json:"hasPreviousPage"`
	Results           []doc.Document `json:"results"`
}

// Paginate slices docs into a page. A negative skip counts as 0 and a top <= 0 as DefaultTop.
func Paginate(docs []doc.Document, skip, top int) Page {
	if skip < 0 {
		skip = 0
	}
	if top <= 0 {
		top = DefaultTop
	}
	total := len(docs)
	start := min(skip, total)
	end := start + min(top, total-start) // skip+top may overflow

	results := make([]doc.Document, end-start)
	copy(results, docs[start:end])

	return Page{
		TotalRecordsCount: total,
		Skip:              skip,
		Top:               top,
		HasNextPage:       skip < total && top < total-skip,
		HasPreviousPage:   skip > 0,
		Results:           results,
	}
}

// --------------------------------------------------------------------------
// Composition
// --------------------------------------------------------------------------

// Spec composes filtering, searching, sorting and paging.
type Spec struct {
	Filters Filters      `json:"filters,omitempty"`
	Search  *SearchSpec  `json:"search,omitempty"`
	OrderBy []SortColumn `json:"orderBy,omitempty"`
	Skip    int          `json:"skip,omitempty"`
	Top     int          `json:"top,omitempty"`
}

// Matcher returns the combined filter and search predicate of the query.
func (s Spec) Matcher() func(doc.Document) bool {
	search := func(doc.Document) bool { return true }
	if s.Search != nil {
		search = s.Search.Matcher()
	}
	return func(d doc.Document) bool {
		return s.Filters.Matches(d) && search(d)
	}
}

// Run applies the sorting and paging of s to an already filtered and searched slice: it sorts docs in place and pages the result.
func (s Spec) Run(matched []doc.Document) Page {
	Sort(matched, s.OrderBy)
	return Paginate(matched, s.Skip, s.Top)
}
