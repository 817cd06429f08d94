package doc

import (
	"testing"

	ldoc "github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	filters, err := ParseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, filters)

	filters, err = ParseFilters([]string{
		"status=Active",
		"price=19.99",
		"featured=true",
		`name="42"`,
		"note=a=b",
	})
	require.NoError(t, err)
	assert.Equal(t, query.Filters{
		"status":   ldoc.Str("Active"),
		"price":    ldoc.Num(19.99),
		"featured": ldoc.Bool(true),
		"name":     ldoc.Str("42"),
		"note":     ldoc.Str("a=b"),
	}, filters)

	for _, invalid := range []string{"status", "=Active"} {
		_, err := ParseFilters([]string{invalid})
		assert.Error(t, err, invalid)
	}
}
