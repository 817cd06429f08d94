package aggregate

import (
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, product string, qty, price float64) doc.Value {
	return doc.Map(doc.Document{
		"id":         doc.Str(id),
		"product_id": doc.Str(product),
		"quantity":   doc.Num(qty),
		"unit_price": doc.Num(price),
		"line_total": doc.Num(qty * price),
	})
}

func num(t *testing.T, d doc.Document, field string) float64 {
	t.Helper()
	n, ok := d.GetNumber(field)
	require.True(t, ok, "field %s is not a number", field)
	return n
}

func lines(t *testing.T, cart doc.Document) []doc.Document {
	t.Helper()
	return cartLines(cart)
}

// --------------------------------------------------------------------------
// Carts
// --------------------------------------------------------------------------

func TestAddCartLinesMergesSameProduct(t *testing.T) {
	cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 2, 10))}

	applied := AddCartLines(cart, []CartLine{{ProductID: "P1", Quantity: 3}})
	assert.Equal(t, 1, applied)

	ls := lines(t, cart)
	require.Len(t, ls, 1)
	assert.Equal(t, 5.0, num(t, ls[0], "quantity"))
	assert.Equal(t, 50.0, num(t, ls[0], "line_total"))
	assert.Equal(t, 50.0, num(t, cart, "subtotal"))
	assert.Equal(t, 4.0, num(t, cart, "tax_amount"))
	assert.Equal(t, 54.0, num(t, cart, "total"))
}

func TestAddCartLinesAppends(t *testing.T) {
	cart := doc.Document{}

	applied := AddCartLines(cart, []CartLine{
		{ProductID: "P1", UnitPrice: 19.99, Quantity: 3},
		{ProductID: "P2", UnitPrice: 5}, // quantity defaults to 1
		{Quantity: 4},                   // no product, skipped
	})
	assert.Equal(t, 2, applied)

	ls := lines(t, cart)
	require.Len(t, ls, 2)
	id0, _ := ls[0].ID()
	id1, _ := ls[1].ID()
	assert.Equal(t, "LINE001", id0)
	assert.Equal(t, "LINE002", id1)
	assert.Equal(t, 1.0, num(t, ls[1], "quantity"))
	assert.Equal(t, 0.0, num(t, ls[1], "discount_amount"))

	assert.Equal(t, 64.97, num(t, cart, "subtotal"))
	assert.Equal(t, 5.2, num(t, cart, "tax_amount"))
	assert.Equal(t, 70.17, num(t, cart, "total"))
}

func TestLineIDsStayUnique(t *testing.T) {
	cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 1, 1), line("LINE002", "P2", 1, 1))}

	RemoveCartLines(cart, []string{"LINE001"})
	AddCartLines(cart, []CartLine{{ProductID: "P3", Quantity: 1, UnitPrice: 1}})

	ls := lines(t, cart)
	require.Len(t, ls, 2)
	id, _ := ls[1].ID()
	assert.Equal(t, "LINE003", id)
}

func TestUpdateCartLines(t *testing.T) {
	cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 1, 10), line("LINE002", "P2", 1, 2.5))}

	changed := UpdateCartLines(cart, []CartLine{
		{ID: "LINE001", Quantity: 4},
		{ID: "LINE002", Quantity: 0},
		{ID: "LINE999", Quantity: 7},
	})
	assert.Equal(t, 2, changed)

	ls := lines(t, cart)
	require.Len(t, ls, 1)
	assert.Equal(t, 40.0, num(t, ls[0], "line_total"))
	assert.Equal(t, 43.2, num(t, cart, "total"))
}

func TestRemoveCartLinesEmptiesTotals(t *testing.T) {
	cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 2, 10))}

	assert.Equal(t, 1, RemoveCartLines(cart, []string{"LINE001", "LINE001"}))
	assert.Empty(t, lines(t, cart))
	assert.Equal(t, 0.0, num(t, cart, "subtotal"))
	assert.Equal(t, 0.0, num(t, cart, "total"))
}

func TestApplyDiscount(t *testing.T) {
	t.Run("percentage", func(t *testing.T) {
		cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 1, 100))}
		d, err := ApplyDiscount(cart, "save10")
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", d.Code)
		assert.Equal(t, 10.0, num(t, cart, "discount_amount"))
		assert.Equal(t, 98.0, num(t, cart, "total"))

		_, err = ApplyDiscount(cart, "SAVE10")
		require.NoError(t, err)
		assert.Equal(t, 98.0, num(t, cart, "total"), "codes do not stack")

		codes, _ := cart.GetList("discount_codes")
		assert.Len(t, codes, 1)
	})

	t.Run("flat floors at zero", func(t *testing.T) {
		cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 1, 1))}
		_, err := ApplyDiscount(cart, "FREESHIP")
		require.NoError(t, err)
		assert.Equal(t, 0.0, num(t, cart, "total"))
	})

	t.Run("kept across line changes", func(t *testing.T) {
		cart := doc.Document{"lines": doc.List(line("LINE001", "P1", 1, 100))}
		_, err := ApplyDiscount(cart, "VIP20")
		require.NoError(t, err)
		AddCartLines(cart, []CartLine{{ProductID: "P1", Quantity: 1}})
		assert.Equal(t, 40.0, num(t, cart, "discount_amount"))
		assert.Equal(t, 176.0, num(t, cart, "total"))
	})

	t.Run("unknown code", func(t *testing.T) {
		cart := doc.Document{}
		_, err := ApplyDiscount(cart, "BOGUS")
		assert.ErrorIs(t, err, ErrUnknownDiscountCode)
		_, has := cart["discount_codes"]
		assert.False(t, has)
	})
}

func TestRound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.345, 2.35},
		{2.344, 2.34},
		{-2.345, -2.35},
		{4, 4},
	}
	for _, tt := range tests {
		if got := Round(tt.in); got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// --------------------------------------------------------------------------
// Loyalty
// --------------------------------------------------------------------------

func TestAppendLedger(t *testing.T) {
	card := doc.Document{"points_balance": doc.Int(200)}
	entry := doc.Document{"points": doc.Int(100), "type": doc.Str("Earned")}

	require.NoError(t, AppendLedger(card, entry))
	assert.Equal(t, 300.0, num(t, card, "points_balance"))

	txs, _ := card.GetList("transactions")
	require.Len(t, txs, 1)
	last, _ := txs[len(txs)-1].AsDocument()
	assert.True(t, last.Equal(entry))

	require.NoError(t, AppendLedger(card, doc.Document{"points": doc.Int(-250), "type": doc.Str("Redeemed")}))
	assert.Equal(t, 50.0, num(t, card, "points_balance"))
	assert.Equal(t, -150.0, LedgerBalance(card))
}

func TestAppendLedgerRejectsMissingPoints(t *testing.T) {
	card := doc.Document{"points_balance": doc.Int(10)}
	err := AppendLedger(card, doc.Document{"points": doc.Str("100")})
	assert.ErrorIs(t, err, ErrInvalidLedgerEntry)
	assert.Equal(t, 10.0, num(t, card, "points_balance"))
	_, has := card["transactions"]
	assert.False(t, has)
}

func TestNumberedLedger(t *testing.T) {
	card := doc.Document{
		"points_balance": doc.Int(0),
		"transactions": doc.List(
			doc.Map(doc.Document{"id": doc.Str("LOYT002"), "points": doc.Int(5)}),
		),
	}

	// LOYT002 is taken, the next free number is used
	require.NoError(t, NumberedLedger("LOYT", doc.Document{"points": doc.Int(10)}).Apply(card))
	// an entry that brings its own id is stored as given
	given := doc.Document{"id": doc.Str("EXT1"), "points": doc.Int(1)}
	require.NoError(t, NumberedLedger("LOYT", given).Apply(card))
	require.NoError(t, NumberedLedger("LOYT", doc.Document{"points": doc.Int(1)}).Apply(card))

	txs, _ := card.GetList("transactions")
	require.Len(t, txs, 4)
	var got []string
	for _, v := range txs {
		e, _ := v.AsDocument()
		id, _ := e.ID()
		got = append(got, id)
	}
	assert.Equal(t, []string{"LOYT002", "LOYT003", "EXT1", "LOYT004"}, got)
	last, _ := txs[2].AsDocument()
	assert.True(t, last.Equal(given))
	assert.Equal(t, 12.0, num(t, card, "points_balance"))

	_, has := given["id"]
	assert.True(t, has)
	plain := doc.Document{"points": doc.Int(1)}
	require.NoError(t, NumberedLedger("LOYT", plain).Apply(card))
	_, has = plain["id"]
	assert.False(t, has, "the caller's entry is not modified")
}

// --------------------------------------------------------------------------
// Inventory
// --------------------------------------------------------------------------

func TestTotalAvailability(t *testing.T) {
	stores := []doc.Document{
		{"inventory": doc.Map(doc.Document{"P1": doc.Int(5)})},
		{"inventory": doc.Map(doc.Document{"P1": doc.Int(7), "P2": doc.Int(1)})},
		{"name": doc.Str("no inventory")},
		{"inventory": doc.Map(doc.Document{"P1": doc.Str("many")})},
	}

	assert.Equal(t, 12.0, TotalAvailability(stores, "P1"))
	assert.Equal(t, 1.0, TotalAvailability(stores, "P2"))
	assert.Equal(t, 0.0, TotalAvailability(stores, "P3"))
	assert.Equal(t, 7.0, StoreAvailability(stores[1], "P1"))
}

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

func TestMutationApply(t *testing.T) {
	cart := doc.Document{"id": doc.Str("CART001"), "status": doc.Str("Active")}

	steps := []Mutation{
		AddLines(CartLine{ProductID: "P1", Quantity: 2, UnitPrice: 10}),
		UpdateLines(CartLine{ID: "LINE001", Quantity: 3}),
		ApplyCode("SAVE20"),
		SetFields(doc.Document{"status": doc.Str("Completed"), "id": doc.Str("HIJACK")}),
	}
	for _, m := range steps {
		data, err := m.Encode()
		require.NoError(t, err)
		decoded, err := DecodeMutation(data)
		require.NoError(t, err)
		require.NoError(t, decoded.Apply(cart))
	}

	assert.Equal(t, 26.4, num(t, cart, "total"))
	status, _ := cart.GetString("status")
	assert.Equal(t, "Completed", status)
	id, _ := cart.ID()
	assert.Equal(t, "CART001", id)

	assert.Error(t, Mutation{Type: "explode"}.Apply(cart))
	assert.ErrorIs(t, ApplyCode("NOPE").Apply(cart), ErrUnknownDiscountCode)
}

func TestTransition(t *testing.T) {
	cart := doc.Document{"id": doc.Str("CART001"), "status": doc.Str("Active")}
	m := Transition("status", doc.Str("Completed"))

	data, err := m.Encode()
	require.NoError(t, err)
	decoded, err := DecodeMutation(data)
	require.NoError(t, err)

	require.NoError(t, decoded.Apply(cart))
	status, _ := cart.GetString("status")
	assert.Equal(t, "Completed", status)

	assert.ErrorIs(t, decoded.Apply(cart), ErrNoTransition)

	// a missing field can always be set
	fresh := doc.Document{}
	require.NoError(t, m.Apply(fresh))
	status, _ = fresh.GetString("status")
	assert.Equal(t, "Completed", status)
}
