package docops_test

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db/engines/maple"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/store/docops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDPrefix(t *testing.T) {
	tests := []struct {
		collection string
		want       string
	}{
		{"customers", "CUST"},
		{"sales_orders", "SALE"},
		{"so", "SO"},
		{"", ""},
		{"lösungen", "LÖSU"},
	}
	for _, tt := range tests {
		if got := docops.IDPrefix(tt.collection); got != tt.want {
			t.Errorf("IDPrefix(%q) = %q, want %q", tt.collection, got, tt.want)
		}
	}
}

func TestNextIDSkipsTakenIDs(t *testing.T) {
	database := maple.NewMapleDB(nil)
	defer database.Close()
	now := time.Unix(0, 0)

	// CART002 was supplied by a caller, so the second generated id must skip it
	_, err := docops.Create(database, "carts", doc.Document{"id": doc.Str("CART002")}, now)
	require.NoError(t, err)

	id, err := docops.Create(database, "carts", doc.Document{}, now)
	require.NoError(t, err)
	assert.Equal(t, "CART003", id)

	id, err = docops.Create(database, "carts", nil, now)
	require.NoError(t, err)
	assert.Equal(t, "CART004", id)
}

func TestCreateOverwritesTimestamps(t *testing.T) {
	database := maple.NewMapleDB(nil)
	defer database.Close()
	now := time.Date(2025, 3, 1, 12, 0, 0, 5, time.FixedZone("X", 3600))

	fields := doc.Document{"createdAt": doc.Str("yesterday"), "name": doc.Str("x")}
	id, err := docops.Create(database, "things", fields, now)
	require.NoError(t, err)

	d, found, err := docops.Read(database, "things", id)
	require.NoError(t, err)
	require.True(t, found)
	created, _ := d.GetString("createdAt")
	assert.Equal(t, "2025-03-01T11:00:00.000000005Z", created)
	assert.Equal(t, d["createdAt"], d["modifiedAt"])

	_, has := fields["id"]
	assert.False(t, has, "Create must not modify the caller's document")
}

func TestApplyFailureWritesNothing(t *testing.T) {
	database := maple.NewMapleDB(nil)
	defer database.Close()
	now := time.Unix(0, 0)

	id, err := docops.Create(database, "carts", doc.Document{"total": doc.Int(10)}, now)
	require.NoError(t, err)

	_, found, err := docops.Apply(database, "carts", id, aggregate.ApplyCode("NOPE"), now.Add(time.Hour))
	assert.True(t, found)
	assert.ErrorIs(t, err, aggregate.ErrUnknownDiscountCode)

	d, _, _ := docops.Read(database, "carts", id)
	assert.Equal(t, docops.Timestamp(now), d["modifiedAt"])
	_, has := d["discount_codes"]
	assert.False(t, has)
}
