package aggregate

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/shopspring/decimal"
)

// Cart field names.
const (
	FieldLines          = "lines"
	FieldSubtotal       = "subtotal"
	FieldTaxAmount      = "tax_amount"
	FieldDiscountAmount = "discount_amount"
	FieldTotal          = "total"
	FieldDiscountCodes  = "discount_codes"

	FieldProductID = "product_id"
	FieldQuantity  = "quantity"
	FieldUnitPrice = "unit_price"
	FieldLineTotal = "line_total"
)

var ErrUnknownDiscountCode = errors.New("unknown discount code")

// CartLine is the input of the line mutations. Which fields are read depends on the mutation:
// AddCartLines reads ProductID, Quantity and UnitPrice; UpdateCartLines reads ID and Quantity.
type CartLine struct {
	ID        string  `json:"id,omitempty"`
	ProductID string  `json:"product_id,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price,omitempty"`
}

// Totals are the derived money fields of a cart.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"tax_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

// --------------------------------------------------------------------------
// Line operations (all mutate the given cart and recompute its totals)
// --------------------------------------------------------------------------

// AddCartLines merges lines into the cart. A line whose product is already in the
// cart increases that line's quantity; any other line is appended with a new
// LINE<nnn> id. Inputs without a product id are skipped, a quantity <= 0 counts as 1.
// It returns the number of inputs applied.
func AddCartLines(cart doc.Document, lines []CartLine) int {
	current := cartLines(cart)
	applied := 0

	for _, in := range lines {
		if in.ProductID == "" {
			continue
		}
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		applied++

		if existing := findLine(current, FieldProductID, in.ProductID); existing != nil {
			q := number(existing, FieldQuantity).Add(decimal.NewFromFloat(qty))
			existing[FieldQuantity] = doc.Num(q.InexactFloat64())
			existing[FieldLineTotal] = money(q.Mul(number(existing, FieldUnitPrice)))
			continue
		}

		price := decimal.NewFromFloat(in.UnitPrice)
		current = append(current, doc.Document{
			doc.FieldID:         doc.Str(nextLineID(current)),
			FieldProductID:      doc.Str(in.ProductID),
			FieldQuantity:       doc.Num(qty),
			FieldUnitPrice:      doc.Num(in.UnitPrice),
			FieldLineTotal:      money(price.Mul(decimal.NewFromFloat(qty))),
			FieldDiscountAmount: doc.Num(0),
		})
	}

	setLines(cart, current)
	Recalculate(cart)
	return applied
}

// UpdateCartLines sets the quantity of the lines named by id. A quantity <= 0 removes the line.
// Unknown ids are ignored. It returns the number of lines changed or removed.
func UpdateCartLines(cart doc.Document, updates []CartLine) int {
	current := cartLines(cart)
	changed := 0

	for _, u := range updates {
		idx := indexOfLine(current, u.ID)
		if idx < 0 {
			continue
		}
		changed++
		if u.Quantity <= 0 {
			current = append(current[:idx], current[idx+1:]...)
			continue
		}
		line := current[idx]
		q := decimal.NewFromFloat(u.Quantity)
		line[FieldQuantity] = doc.Num(u.Quantity)
		line[FieldLineTotal] = money(q.Mul(number(line, FieldUnitPrice)))
	}

	setLines(cart, current)
	Recalculate(cart)
	return changed
}

// RemoveCartLines removes the lines with the given ids and returns how many were removed.
func RemoveCartLines(cart doc.Document, ids []string) int {
	current := cartLines(cart)
	removed := 0

	for _, id := range ids {
		idx := indexOfLine(current, id)
		if idx < 0 {
			continue
		}
		current = append(current[:idx], current[idx+1:]...)
		removed++
	}

	setLines(cart, current)
	Recalculate(cart)
	return removed
}

// ApplyDiscount records a known discount code on the cart and recomputes the total.
// Applying a code twice has no further effect.
func ApplyDiscount(cart doc.Document, code string) (Discount, error) {
	d, ok := LookupDiscount(code)
	if !ok {
		return Discount{}, fmt.Errorf("%w: %q", ErrUnknownDiscountCode, code)
	}

	codes, _ := cart.GetList(FieldDiscountCodes)
	present := false
	for _, c := range codes {
		if s, _ := c.AsString(); s == d.Code {
			present = true
			break
		}
	}
	if !present {
		codes = append(codes, doc.Str(d.Code))
	}
	cart[FieldDiscountCodes] = doc.List(codes...)

	Recalculate(cart)
	return d, nil
}

// --------------------------------------------------------------------------
// Totals
// --------------------------------------------------------------------------

// Recalculate derives subtotal, tax, discount and total from the cart lines and
// discount codes, writes them to the cart and returns them.
//
//	subtotal = sum(line_total)
//	tax      = subtotal * TaxRate
//	total    = max(0, subtotal + tax - discount)
//
// Every amount is rounded half away from zero to cents.
func Recalculate(cart doc.Document) Totals {
	subtotal := decimal.Zero
	for _, line := range cartLines(cart) {
		subtotal = subtotal.Add(number(line, FieldLineTotal))
	}
	subtotal = subtotal.Round(moneyPlaces)
	tax := subtotal.Mul(TaxRate).Round(moneyPlaces)

	discount := decimal.Zero
	codes, _ := cart.GetList(FieldDiscountCodes)
	for _, c := range codes {
		s, _ := c.AsString()
		if d, ok := LookupDiscount(s); ok {
			discount = discount.Add(d.AmountFor(subtotal))
		}
	}

	total := decimal.Max(decimal.Zero, subtotal.Add(tax).Sub(discount))

	cart[FieldSubtotal] = money(subtotal)
	cart[FieldTaxAmount] = money(tax)
	cart[FieldTotal] = money(total)
	if len(codes) > 0 {
		cart[FieldDiscountAmount] = money(discount)
	}

	return Totals{
		Subtotal:       subtotal.InexactFloat64(),
		TaxAmount:      tax.InexactFloat64(),
		DiscountAmount: discount.Round(moneyPlaces).InexactFloat64(),
		Total:          total.Round(moneyPlaces).InexactFloat64(),
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// cartLines returns the map-shaped entries of the cart's lines. Entries are shared with the cart.
func cartLines(cart doc.Document) []doc.Document {
	list, _ := cart.GetList(FieldLines)
	lines := make([]doc.Document, 0, len(list))
	for _, v := range list {
		if d, ok := v.AsDocument(); ok {
			lines = append(lines, d)
		}
	}
	return lines
}

func setLines(cart doc.Document, lines []doc.Document) {
	values := make([]doc.Value, len(lines))
	for i, l := range lines {
		values[i] = doc.Map(l)
	}
	cart[FieldLines] = doc.List(values...)
}

func findLine(lines []doc.Document, field, want string) doc.Document {
	for _, l := range lines {
		if s, ok := l.GetString(field); ok && s == want {
			return l
		}
	}
	return nil
}

func indexOfLine(lines []doc.Document, id string) int {
	for i, l := range lines {
		if s, ok := l.ID(); ok && s == id {
			return i
		}
	}
	return -1
}

func nextLineID(lines []doc.Document) string {
	for n := len(lines) + 1; ; n++ {
		id := fmt.Sprintf("LINE%03d", n)
		if indexOfLine(lines, id) < 0 {
			return id
		}
	}
}
