package commerce

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/db/engines/maple"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store/lstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

// newSeededService returns a service over a fresh local store holding the demo data set.
func newSeededService(t *testing.T) *Service {
	t.Helper()
	s, err := lstore.NewLocalStore(func() (db.DocDB, error) { return maple.NewMapleDB(nil), nil })
	require.NoError(t, err)

	n, err := LoadSeed(s)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	return NewService(s,
		WithClock(func() time.Time { return testNow }),
		WithIDSource(func() string { return "abcdef12-3456-7890-abcd-ef1234567890" }),
	)
}

func number(t *testing.T, d doc.Document, field string) float64 {
	t.Helper()
	n, ok := d.GetNumber(field)
	require.True(t, ok, "field %s is not a number", field)
	return n
}

func str(d doc.Document, field string) string {
	s, _ := d.GetString(field)
	return s
}

func lines(t *testing.T, cart doc.Document) []doc.Document {
	t.Helper()
	list, _ := cart.GetList(aggregate.FieldLines)
	out := make([]doc.Document, 0, len(list))
	for _, v := range list {
		line, ok := v.AsDocument()
		require.True(t, ok)
		out = append(out, line)
	}
	return out
}

// --------------------------------------------------------------------------
// Seed
// --------------------------------------------------------------------------

func TestSeedData(t *testing.T) {
	seed, err := SeedData()
	require.NoError(t, err)

	for _, c := range []string{"countries", "states", "cities", "customers", "products", "categories",
		"stores", "carts", "sales_orders", "loyalty_cards", "shifts", "tender_types", "reason_codes", "delivery_options"} {
		assert.NotEmpty(t, seed[c], "collection %s", c)
	}

	cart := seed["carts"][0]
	assert.Equal(t, "CART001", str(cart, "id"))
	assert.Equal(t, 215.99, number(t, cart, "total"))

	states := seed["states"]
	assert.Equal(t, "ON", str(states[len(states)-1], "id"), "quoted ids stay strings")
}

func TestParseSeedRejectsInvalidYAML(t *testing.T) {
	_, err := ParseSeed([]byte("carts: {not: a list}"))
	assert.Error(t, err)
}

// --------------------------------------------------------------------------
// Carts
// --------------------------------------------------------------------------

func TestCreateCartDefaults(t *testing.T) {
	svc := newSeededService(t)

	cart, err := svc.CreateCart("CUST002", "", "")
	require.NoError(t, err)

	assert.Equal(t, "CART002", str(cart, "id"))
	assert.Equal(t, DefaultStoreID, str(cart, "store_id"))
	assert.Equal(t, DefaultCurrency, str(cart, "currency"))
	assert.Equal(t, CartStatusActive, str(cart, "status"))
	assert.Equal(t, DefaultDeliveryMode, str(cart, "delivery_mode"))
	assert.Empty(t, lines(t, cart))
	assert.Equal(t, 0.0, number(t, cart, "total"))
}

func TestCartWorkflow(t *testing.T) {
	svc := newSeededService(t)

	cart, err := svc.CreateCart("CUST001", "STORE002", "USD")
	require.NoError(t, err)
	cartID := str(cart, "id")

	// add: two lines accepted, unknown and empty product ids are skipped
	cart, added, err := svc.AddCartLines(cartID, []LineInput{
		{ProductID: "PROD001", Quantity: 2},
		{ProductID: "PROD002"},
		{ProductID: "NOPE", Quantity: 3},
		{Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	require.Len(t, lines(t, cart), 2)
	assert.Equal(t, 429.97, number(t, cart, "subtotal"))
	assert.Equal(t, 34.40, number(t, cart, "tax_amount"))
	assert.Equal(t, 464.37, number(t, cart, "total"))

	// discount
	cart, applied, err := svc.ApplyDiscountCode(cartID, "save10")
	require.NoError(t, err)
	assert.Equal(t, AppliedDiscount{Code: "SAVE10", Amount: 43.00, Type: "percentage"}, applied)
	assert.Equal(t, 421.37, number(t, cart, "total"))

	_, _, err = svc.ApplyDiscountCode(cartID, "BOGUS")
	assert.ErrorIs(t, err, aggregate.ErrUnknownDiscountCode)

	// enrichment
	cart, err = svc.GetCart(cartID)
	require.NoError(t, err)
	first := lines(t, cart)[0]
	assert.Equal(t, "Wireless Bluetooth Headphones", str(first, "product_name"))
	assert.Equal(t, "WBH001", str(first, "product_sku"))
	assert.Equal(t, "https://example.com/images/wbh001_1.jpg", str(first, "product_image"))

	// update: quantity 0 removes the line, the discount follows the new subtotal
	cart, updated, err := svc.UpdateCartLines(cartID, []LineUpdate{{LineID: "LINE002", Quantity: 0}, {LineID: "LINE999", Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	require.Len(t, lines(t, cart), 1)
	assert.Equal(t, 399.98, number(t, cart, "subtotal"))
	assert.Equal(t, 40.00, number(t, cart, "discount_amount"))
	assert.Equal(t, 391.98, number(t, cart, "total"))

	_, _, err = svc.UpdateCartLines(cartID, []LineUpdate{{LineID: "LINE001", Quantity: -1}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// checkout
	receipt, err := svc.Checkout(cartID, "john.smith@example.com")
	require.NoError(t, err)
	order := receipt.Order
	assert.Equal(t, "ORDABCDEF", str(order, "order_number"))
	assert.Equal(t, OrderStatusConfirmed, str(order, "status"))
	assert.Equal(t, "Paid", str(order, "payment_status"))
	assert.Equal(t, "john.smith@example.com", str(order, "receipt_email"))
	assert.Equal(t, "STORE002", str(order, "store_id"))
	assert.Equal(t, 5.99, number(t, order, "shipping_amount"))
	assert.Equal(t, 397.97, number(t, order, "total"))
	assert.Equal(t, "2025-02-01T10:00:00Z", str(order, "order_date"))
	assert.Len(t, lines(t, order), 1)
	assert.Equal(t, Transaction{ID: "TXNABCDEF", Amount: 397.97, PaymentMethod: PaymentMethodCard, Status: "Approved"}, receipt.Transaction)

	cart, err = svc.GetCart(cartID)
	require.NoError(t, err)
	assert.Equal(t, CartStatusCompleted, str(cart, "status"))

	_, err = svc.Checkout(cartID, "")
	assert.ErrorIs(t, err, ErrCartClosed)

	orders, err := svc.CustomerOrders("CUST001")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "SO001", str(orders[0], "id"))
	assert.Equal(t, str(order, "id"), str(orders[1], "id"))
}

func TestRemoveCartLines(t *testing.T) {
	svc := newSeededService(t)

	cart, removed, err := svc.RemoveCartLines("CART001", []string{"LINE001", "LINE001", "LINE404"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Empty(t, lines(t, cart))
	assert.Equal(t, 0.0, number(t, cart, "total"))

	_, err = svc.Checkout("CART001", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestMissingCart(t *testing.T) {
	svc := newSeededService(t)

	_, err := svc.GetCart("CART404")
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, _, err = svc.AddCartLines("CART404", []LineInput{{ProductID: "PROD001"}})
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, _, err = svc.RemoveCartLines("CART404", []string{"LINE001"})
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, _, err = svc.ApplyDiscountCode("CART404", "SAVE10")
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.Checkout("CART404", "")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestConcurrentCheckout(t *testing.T) {
	svc := newSeededService(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Checkout("CART001", "")
			switch {
			case err == nil:
				succeeded.Add(1)
			case !errors.Is(err, ErrCartClosed):
				t.Errorf("Checkout: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	n, err := svc.store.Count(CollSalesOrders, query.Filters{"cart_id": doc.Str("CART001")})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "exactly one order per cart")
}

func TestClaimAndReleaseCart(t *testing.T) {
	svc := newSeededService(t)

	_, err := svc.store.Update(CollCarts, "CART001", doc.Document{"status": doc.Str(CartStatusCompleted)})
	require.NoError(t, err)

	_, err = svc.claimCart("CART001")
	assert.ErrorIs(t, err, ErrCartClosed)

	svc.releaseCart("CART001", CartStatusActive)
	receipt, err := svc.Checkout("CART001", "")
	require.NoError(t, err)
	assert.Equal(t, "CART001", str(receipt.Order, "cart_id"))
}

func TestConcurrentAddCartLines(t *testing.T) {
	svc := newSeededService(t)

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := svc.AddCartLines("CART001", []LineInput{{ProductID: "PROD002", Quantity: 1}}); err != nil {
				t.Errorf("AddCartLines: %v", err)
			}
		}()
	}
	wg.Wait()

	cart, err := svc.GetCart("CART001")
	require.NoError(t, err)
	ls := lines(t, cart)
	require.Len(t, ls, 2)
	assert.Equal(t, float64(workers), number(t, ls[1], "quantity"))
	// 199.99 + 10 * 29.99
	assert.Equal(t, 499.89, number(t, cart, "subtotal"))
}

// --------------------------------------------------------------------------
// Loyalty
// --------------------------------------------------------------------------

func TestLoyalty(t *testing.T) {
	svc := newSeededService(t)

	card, err := svc.EarnPoints("LOY001", 100, "Purchase", "SO001")
	require.NoError(t, err)
	assert.Equal(t, 1350.0, number(t, card, "points_balance"))
	txs, _ := card.GetList("transactions")
	require.Len(t, txs, 2)
	last, _ := txs[1].AsDocument()
	assert.Equal(t, "LOYT002", str(last, "id"))
	assert.Equal(t, LedgerEarned, str(last, "type"))
	assert.Equal(t, "SO001", str(last, "order_id"))
	assert.Equal(t, "2025-02-01T10:00:00Z", str(last, "date"))

	redemption, err := svc.RedeemPoints("LOY001", 500)
	require.NoError(t, err)
	assert.Equal(t, 850.0, number(t, redemption.Card, "points_balance"))
	assert.Equal(t, 25.0, redemption.Value)

	issued, err := svc.IssueCard("CUST002", "", 40)
	require.NoError(t, err)
	issuedID := str(issued, "id")
	assert.Equal(t, issuedID, str(issued, "card_number"))
	assert.Equal(t, DefaultTier, str(issued, "tier"))
	assert.Equal(t, 40.0, number(t, issued, "points_balance"))

	from, to, err := svc.TransferPoints("LOY001", issuedID, 50)
	require.NoError(t, err)
	assert.Equal(t, 800.0, number(t, from, "points_balance"))
	assert.Equal(t, 90.0, number(t, to, "points_balance"))

	balance, err := svc.Balance("LOY001")
	require.NoError(t, err)
	assert.Equal(t, 800.0, balance)
	// seed entry 70, earned 100, redeemed 500, transferred 50
	assert.Equal(t, -380.0, aggregate.LedgerBalance(from))
}

func TestLoyaltyErrors(t *testing.T) {
	svc := newSeededService(t)

	_, err := svc.EarnPoints("LOY001", 0, "", "")
	assert.ErrorIs(t, err, ErrInvalidPoints)

	_, err = svc.RedeemPoints("LOY001", -5)
	assert.ErrorIs(t, err, ErrInvalidPoints)

	_, err = svc.EarnPoints("LOY404", 10, "", "")
	assert.ErrorIs(t, err, ErrCardNotFound)

	_, err = svc.Balance("LOY404")
	assert.ErrorIs(t, err, ErrCardNotFound)

	_, _, err = svc.TransferPoints("LOY001", "LOY404", 10)
	assert.ErrorIs(t, err, ErrCardNotFound)
	balance, _ := svc.Balance("LOY001")
	assert.Equal(t, 1250.0, balance, "a failed transfer debits nothing")

	redemption, err := svc.RedeemPoints("LOY001", 2000)
	require.NoError(t, err)
	assert.Equal(t, -750.0, number(t, redemption.Card, "points_balance"), "balances are not floored")
}

func TestConcurrentEarnPoints(t *testing.T) {
	svc := newSeededService(t)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.EarnPoints("LOY001", 5, "", ""); err != nil {
				t.Errorf("EarnPoints: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := svc.Balance("LOY001")
	require.NoError(t, err)
	assert.Equal(t, 1250.0+workers*5, balance)

	card, found, err := svc.store.Read(CollLoyaltyCards, "LOY001")
	require.NoError(t, err)
	require.True(t, found)
	txs, _ := card.GetList("transactions")
	require.Len(t, txs, workers+1)
	seen := map[string]bool{}
	for _, v := range txs {
		e, _ := v.AsDocument()
		id := str(e, "id")
		assert.False(t, seen[id], "duplicate ledger id %s", id)
		seen[id] = true
	}
}

// --------------------------------------------------------------------------
// Inventory
// --------------------------------------------------------------------------

func TestProductAvailability(t *testing.T) {
	svc := newSeededService(t)

	tests := []struct {
		product, store string
		want           float64
	}{
		{"PROD001", "", 125},
		{"PROD002", "", 320},
		{"PROD001", "STORE002", 75},
		{"PROD002", "STORE001", 120},
		{"PROD404", "", 0},
	}
	for _, tt := range tests {
		got, err := svc.ProductAvailability(tt.product, tt.store)
		if err != nil {
			t.Errorf("ProductAvailability(%q, %q) error = %v", tt.product, tt.store, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ProductAvailability(%q, %q) = %v, want %v", tt.product, tt.store, got, tt.want)
		}
	}

	_, err := svc.ProductAvailability("PROD001", "STORE404")
	assert.ErrorIs(t, err, ErrStoreNotFound)
}
