package commerce

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/shopspring/decimal"
)

// Cart defaults and checkout constants.
const (
	DefaultStoreID      = "STORE001"
	DefaultCurrency     = "USD"
	DefaultDeliveryMode = "Standard"

	CartStatusActive    = "Active"
	CartStatusCompleted = "Completed"

	OrderStatusConfirmed = "Confirmed"
	PaymentMethodCard    = "credit_card"
)

// ShippingAmount is charged on every order at checkout.
var ShippingAmount = decimal.RequireFromString("5.99")

// LineInput is a product to add to a cart. A Quantity <= 0 counts as 1.
type LineInput struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// LineUpdate sets the quantity of an existing cart line. Quantity 0 removes the line.
type LineUpdate struct {
	LineID   string  `json:"line_id"`
	Quantity float64 `json:"quantity"`
}

// AppliedDiscount describes the effect of a discount code on a cart.
type AppliedDiscount struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type"`
}

// Transaction is the payment record returned by Checkout.
type Transaction struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
}

// Receipt is the result of a checkout.
type Receipt struct {
	Order       doc.Document `json:"order"`
	Transaction Transaction  `json:"transaction"`
}

// --------------------------------------------------------------------------
// Cart operations
// --------------------------------------------------------------------------

// CreateCart creates an empty active cart. Empty storeID and currency take the defaults.
func (s *Service) CreateCart(customerID, storeID, currency string) (doc.Document, error) {
	if storeID == "" {
		storeID = DefaultStoreID
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	cart := doc.Document{
		"store_id":                   doc.Str(storeID),
		"currency":                   doc.Str(currency),
		"status":                     doc.Str(CartStatusActive),
		aggregate.FieldLines:         doc.List(),
		aggregate.FieldSubtotal:      doc.Int(0),
		aggregate.FieldTaxAmount:     doc.Int(0),
		aggregate.FieldTotal:         doc.Int(0),
		aggregate.FieldDiscountCodes: doc.List(),
		"delivery_mode":              doc.Str(DefaultDeliveryMode),
		"customer_id":                doc.Null(),
	}
	if customerID != "" {
		cart["customer_id"] = doc.Str(customerID)
	}

	id, err := s.store.Create(CollCarts, cart)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	log.Debugf("created cart %s for customer %q", id, customerID)
	return s.mustRead(CollCarts, id, ErrCartNotFound)
}

// GetCart returns the cart with its lines enriched by product_name, product_sku and
// product_image. Lines referencing unknown products are returned unchanged.
func (s *Service) GetCart(cartID string) (doc.Document, error) {
	cart, err := s.mustRead(CollCarts, cartID, ErrCartNotFound)
	if err != nil {
		return nil, err
	}

	lines, _ := cart.GetList(aggregate.FieldLines)
	products := map[string]doc.Document{}
	for i, v := range lines {
		line, ok := v.AsDocument()
		if !ok {
			continue
		}
		productID, _ := line.GetString(aggregate.FieldProductID)
		product, cached := products[productID]
		if !cached {
			product, _, err = s.store.Read(CollProducts, productID)
			if err != nil {
				return nil, fmt.Errorf("read product %s: %w", productID, err)
			}
			products[productID] = product
		}
		if product == nil {
			continue
		}

		line["product_name"] = product["name"]
		line["product_sku"] = product["sku"]
		image := doc.Null()
		if images, _ := product.GetList("images"); len(images) > 0 {
			image = images[0]
		}
		line["product_image"] = image
		lines[i] = doc.Map(line)
	}
	return cart, nil
}

// AddCartLines adds products to the cart at their current price. Inputs without a product id
// or referencing an unknown product are skipped. It returns the updated cart and the number
// of inputs that were added.
func (s *Service) AddCartLines(cartID string, inputs []LineInput) (doc.Document, int, error) {
	lines := make([]aggregate.CartLine, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID == "" {
			continue
		}
		product, found, err := s.store.Read(CollProducts, in.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("read product %s: %w", in.ProductID, err)
		}
		if !found {
			log.Debugf("cart %s: skipping unknown product %s", cartID, in.ProductID)
			continue
		}
		price, _ := product.GetNumber("price")
		lines = append(lines, aggregate.CartLine{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: price,
		})
	}

	cart, err := s.applyToCart(cartID, aggregate.AddLines(lines...))
	if err != nil {
		return nil, 0, err
	}
	return cart, len(lines), nil
}

// UpdateCartLines sets line quantities. Unknown line ids are ignored. It returns the
// updated cart and the number of updates requested.
func (s *Service) UpdateCartLines(cartID string, updates []LineUpdate) (doc.Document, int, error) {
	lines := make([]aggregate.CartLine, 0, len(updates))
	for _, u := range updates {
		if u.Quantity < 0 {
			return nil, 0, fmt.Errorf("%w: line %s", ErrInvalidQuantity, u.LineID)
		}
		lines = append(lines, aggregate.CartLine{ID: u.LineID, Quantity: u.Quantity})
	}

	cart, err := s.applyToCart(cartID, aggregate.UpdateLines(lines...))
	if err != nil {
		return nil, 0, err
	}
	return cart, len(updates), nil
}

// RemoveCartLines removes lines by id. It returns the updated cart and the number of
// requested lines that were present before and are gone now.
func (s *Service) RemoveCartLines(cartID string, lineIDs []string) (doc.Document, int, error) {
	before, err := s.mustRead(CollCarts, cartID, ErrCartNotFound)
	if err != nil {
		return nil, 0, err
	}

	cart, err := s.applyToCart(cartID, aggregate.RemoveLines(lineIDs...))
	if err != nil {
		return nil, 0, err
	}

	present := lineIDSet(before)
	remaining := lineIDSet(cart)
	removed := 0
	for _, id := range lineIDs {
		if present[id] && !remaining[id] {
			removed++
			delete(present, id)
		}
	}
	return cart, removed, nil
}

// ApplyDiscountCode applies a code of the discount table to the cart.
// Unknown codes return aggregate.ErrUnknownDiscountCode and leave the cart unchanged.
func (s *Service) ApplyDiscountCode(cartID, code string) (doc.Document, AppliedDiscount, error) {
	discount, ok := aggregate.LookupDiscount(code)
	if !ok {
		return nil, AppliedDiscount{}, fmt.Errorf("%w: %q", aggregate.ErrUnknownDiscountCode, code)
	}

	cart, err := s.applyToCart(cartID, aggregate.ApplyCode(discount.Code))
	if err != nil {
		return nil, AppliedDiscount{}, err
	}

	subtotal, _ := cart.GetNumber(aggregate.FieldSubtotal)
	return cart, AppliedDiscount{
		Code:   discount.Code,
		Amount: discount.AmountFor(decimal.NewFromFloat(subtotal)).InexactFloat64(),
		Type:   discount.Kind.String(),
	}, nil
}

// Checkout turns an active, non-empty cart into a confirmed sales order and marks the
// cart Completed. The cart is claimed first with a transition of its status, so of two
// concurrent checkouts of one cart only one creates an order.
func (s *Service) Checkout(cartID, receiptEmail string) (Receipt, error) {
	cart, err := s.mustRead(CollCarts, cartID, ErrCartNotFound)
	if err != nil {
		return Receipt{}, err
	}
	status, _ := cart.GetString("status")
	if status == CartStatusCompleted {
		return Receipt{}, fmt.Errorf("%w: %s", ErrCartClosed, cartID)
	}
	if lines, _ := cart.GetList(aggregate.FieldLines); len(lines) == 0 {
		return Receipt{}, fmt.Errorf("%w: %s", ErrEmptyCart, cartID)
	}

	if cart, err = s.claimCart(cartID); err != nil {
		return Receipt{}, err
	}
	if status == "" {
		status = CartStatusActive
	}
	// lines may have been removed between the read and the claim
	if lines, _ := cart.GetList(aggregate.FieldLines); len(lines) == 0 {
		s.releaseCart(cartID, status)
		return Receipt{}, fmt.Errorf("%w: %s", ErrEmptyCart, cartID)
	}

	total, _ := cart.GetNumber(aggregate.FieldTotal)
	orderTotal := decimal.NewFromFloat(total).Add(ShippingAmount).Round(2)

	order := doc.Document{
		"order_number":                doc.Str(s.shortID("ORD")),
		"cart_id":                     doc.Str(cartID),
		"customer_id":                 valueOr(cart, "customer_id"),
		"store_id":                    valueOr(cart, "store_id"),
		"order_date":                  s.timestamp(),
		"status":                      doc.Str(OrderStatusConfirmed),
		"currency":                    valueOr(cart, "currency"),
		aggregate.FieldLines:          valueOr(cart, aggregate.FieldLines),
		aggregate.FieldSubtotal:       valueOr(cart, aggregate.FieldSubtotal),
		aggregate.FieldTaxAmount:      valueOr(cart, aggregate.FieldTaxAmount),
		aggregate.FieldDiscountCodes:  valueOr(cart, aggregate.FieldDiscountCodes),
		aggregate.FieldDiscountAmount: valueOr(cart, aggregate.FieldDiscountAmount),
		"shipping_amount":             doc.Num(ShippingAmount.InexactFloat64()),
		aggregate.FieldTotal:          doc.Num(orderTotal.InexactFloat64()),
		"payment_method":              doc.Str(PaymentMethodCard),
		"payment_status":              doc.Str("Paid"),
		"receipt_email":               doc.Null(),
	}
	if receiptEmail != "" {
		order["receipt_email"] = doc.Str(receiptEmail)
	}

	orderID, err := s.store.Create(CollSalesOrders, order)
	if err != nil {
		s.releaseCart(cartID, status)
		return Receipt{}, fmt.Errorf("create order: %w", err)
	}

	created, err := s.mustRead(CollSalesOrders, orderID, ErrOrderNotFound)
	if err != nil {
		return Receipt{}, err
	}
	log.Infof("checked out cart %s as order %s (total %s)", cartID, orderID, orderTotal)

	return Receipt{
		Order: created,
		Transaction: Transaction{
			ID:            s.shortID("TXN"),
			Amount:        orderTotal.InexactFloat64(),
			PaymentMethod: PaymentMethodCard,
			Status:        "Approved",
		},
	}, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// applyToCart runs m on the cart and maps a missing cart to ErrCartNotFound.
func (s *Service) applyToCart(cartID string, m aggregate.Mutation) (doc.Document, error) {
	cart, found, err := s.store.Apply(CollCarts, cartID, m)
	if err != nil {
		return nil, fmt.Errorf("%s on cart %s: %w", m.Type, cartID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	return cart, nil
}

// claimCart sets the cart status to Completed and returns the cart as it was claimed.
// A cart that is already Completed yields ErrCartClosed.
func (s *Service) claimCart(cartID string) (doc.Document, error) {
	cart, err := s.applyToCart(cartID, aggregate.Transition("status", doc.Str(CartStatusCompleted)))
	if err == nil || errors.Is(err, ErrCartNotFound) {
		return cart, err
	}
	// a remote store reports the failed transition as a plain store error
	if current, found, rerr := s.store.Read(CollCarts, cartID); rerr == nil && found {
		if status, _ := current.GetString("status"); status == CartStatusCompleted {
			return nil, fmt.Errorf("%w: %s", ErrCartClosed, cartID)
		}
	}
	return nil, err
}

// releaseCart gives a claimed cart its previous status back.
func (s *Service) releaseCart(cartID, status string) {
	if _, err := s.applyToCart(cartID, aggregate.SetFields(doc.Document{"status": doc.Str(status)})); err != nil {
		log.Errorf("releasing cart %s failed: %v", cartID, err)
	}
}

func lineIDSet(cart doc.Document) map[string]bool {
	set := map[string]bool{}
	lines, _ := cart.GetList(aggregate.FieldLines)
	for _, v := range lines {
		if line, ok := v.AsDocument(); ok {
			if id, ok := line.ID(); ok {
				set[id] = true
			}
		}
	}
	return set
}

// valueOr returns a copy of the field, or null if it is absent.
func valueOr(d doc.Document, field string) doc.Value {
	v, ok := d.Get(field)
	if !ok {
		return doc.Null()
	}
	return v.Clone()
}
