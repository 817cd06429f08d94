package query

import (
	"fmt"
	"math"
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(docs []doc.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i], _ = d.ID()
	}
	return out
}

func TestFilters(t *testing.T) {
	d := doc.Document{"status": doc.Str("Active"), "qty": doc.Int(2)}

	tests := []struct {
		name    string
		filters Filters
		want    bool
	}{
		{"empty filter matches", Filters{}, true},
		{"nil filter matches", nil, true},
		{"single match", Filters{"status": doc.Str("Active")}, true},
		{"and semantics", Filters{"status": doc.Str("Active"), "qty": doc.Int(3)}, false},
		{"strict kind", Filters{"qty": doc.Str("2")}, false},
		{"missing field", Filters{"store_id": doc.Null()}, false},
		{"case sensitive", Filters{"status": doc.Str("active")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(d))
		})
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	match := SearchSpec{Text: "ALICE", Fields: []string{"name"}}.Matcher()
	assert.True(t, match(doc.Document{"name": doc.Str("alice smith")}))
	assert.False(t, match(doc.Document{"email": doc.Str("alice@example.com")}))
}

func TestSearchDefaults(t *testing.T) {
	d := doc.Document{"sku": doc.Str("WBH001"), "price": doc.Num(199.99)}

	assert.True(t, SearchSpec{Text: "wbh"}.Matcher()(d), "sku is a default field")
	assert.False(t, SearchSpec{Text: "199"}.Matcher()(d), "price is not a default field")
	assert.True(t, SearchSpec{Text: "199.9", Fields: []string{"price"}}.Matcher()(d), "numbers match by text")
	assert.True(t, SearchSpec{}.Matcher()(doc.Document{}), "empty text matches everything")
}

func TestSortMissingFieldSortsFirst(t *testing.T) {
	docs := []doc.Document{
		{"id": doc.Str("A"), "price": doc.Int(1)},
		{"id": doc.Str("B")},
		{"id": doc.Str("C"), "price": doc.Num(-1)},
	}
	Sort(docs, []SortColumn{{Field: "price"}})
	assert.Equal(t, []string{"C", "B", "A"}, ids(docs))

	Sort(docs, []SortColumn{{Field: "price", IsDescending: true}})
	assert.Equal(t, []string{"A", "B", "C"}, ids(docs))
}

func TestSortTypeAware(t *testing.T) {
	t.Run("numbers by value", func(t *testing.T) {
		docs := []doc.Document{
			{"id": doc.Str("10"), "n": doc.Int(10)},
			{"id": doc.Str("9"), "n": doc.Int(9)},
		}
		Sort(docs, []SortColumn{{Field: "n"}})
		assert.Equal(t, []string{"9", "10"}, ids(docs))
	})

	t.Run("strings lexicographic", func(t *testing.T) {
		docs := []doc.Document{
			{"id": doc.Str("1"), "s": doc.Str("b")},
			{"id": doc.Str("2"), "s": doc.Str("B")},
			{"id": doc.Str("3"), "s": doc.Str("a")},
		}
		Sort(docs, []SortColumn{{Field: "s"}})
		assert.Equal(t, []string{"2", "3", "1"}, ids(docs))
	})

	t.Run("bools false first", func(t *testing.T) {
		docs := []doc.Document{
			{"id": doc.Str("t"), "b": doc.Bool(true)},
			{"id": doc.Str("f"), "b": doc.Bool(false)},
			{"id": doc.Str("m")},
		}
		Sort(docs, []SortColumn{{Field: "b"}})
		assert.Equal(t, []string{"f", "m", "t"}, ids(docs), "missing is false and the sort is stable")
	})

	t.Run("only first column honored", func(t *testing.T) {
		docs := []doc.Document{
			{"id": doc.Str("1"), "a": doc.Int(1), "b": doc.Int(2)},
			{"id": doc.Str("2"), "a": doc.Int(1), "b": doc.Int(1)},
		}
		Sort(docs, []SortColumn{{Field: "a"}, {Field: "b"}})
		assert.Equal(t, []string{"1", "2"}, ids(docs))
	})
}

func TestPaginationInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 7, 50, 51} {
		docs := make([]doc.Document, n)
		for i := range docs {
			docs[i] = doc.Document{"id": doc.Str(fmt.Sprint(i))}
		}
		for _, skip := range []int{0, 1, 5, 50, 60} {
			for _, top := range []int{1, 3, 50} {
				p := Paginate(docs, skip, top)
				assert.Equal(t, min(top, max(0, n-skip)), len(p.Results), "n=%d skip=%d top=%d", n, skip, top)
				assert.Equal(t, skip+top < n, p.HasNextPage)
				assert.Equal(t, skip > 0, p.HasPreviousPage)
				assert.Equal(t, n, p.TotalRecordsCount)
			}
		}
	}
}

func TestPaginationLargeValues(t *testing.T) {
	docs := []doc.Document{{"id": doc.Str("a")}, {"id": doc.Str("b")}}

	p := Paginate(docs, math.MaxInt, 50)
	assert.Empty(t, p.Results)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPreviousPage)
	assert.Equal(t, 2, p.TotalRecordsCount)

	p = Paginate(docs, 1, math.MaxInt)
	assert.Len(t, p.Results, 1)
	assert.False(t, p.HasNextPage)

	p = Paginate(docs, math.MaxInt, math.MaxInt)
	assert.Empty(t, p.Results)
	assert.False(t, p.HasNextPage)
}

func TestPaginationDefaults(t *testing.T) {
	p := Paginate(nil, -3, 0)
	assert.Equal(t, 0, p.Skip)
	assert.Equal(t, DefaultTop, p.Top)
	assert.NotNil(t, p.Results)
	assert.False(t, p.HasNextPage)
}

func TestSpecRun(t *testing.T) {
	var all []doc.Document
	for i := 1; i <= 5; i++ {
		all = append(all, doc.Document{
			"id":    doc.Str(fmt.Sprintf("P%d", i)),
			"name":  doc.Str(fmt.Sprintf("Item %d", i)),
			"price": doc.Int(10 * i),
			"kind":  doc.Str([]string{"a", "b"}[i%2]),
		})
	}
	spec := Spec{
		Filters: Filters{"kind": doc.Str("b")},
		Search:  &SearchSpec{Text: "item"},
		OrderBy: []SortColumn{{Field: "price", IsDescending: true}},
		Top:     2,
	}

	match := spec.Matcher()
	var matched []doc.Document
	for _, d := range all {
		if match(d) {
			matched = append(matched, d)
		}
	}
	page := spec.Run(matched)

	require.Len(t, page.Results, 2)
	assert.Equal(t, []string{"P5", "P3"}, ids(page.Results))
	assert.Equal(t, 3, page.TotalRecordsCount)
	assert.True(t, page.HasNextPage)
}
