package aggregate

import (
	"strings"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/shopspring/decimal"
)

// --------------------------------------------------------------------------
// Fixed business constants
// --------------------------------------------------------------------------

var (
	// TaxRate is the flat tax applied to every cart subtotal.
	TaxRate = decimal.RequireFromString("0.08")

	moneyPlaces int32 = 2
)

// DiscountKind tells how a discount is computed.
type DiscountKind uint8

const (
	DiscountPercentage DiscountKind = iota // a fraction of the subtotal
	DiscountFlat                           // a fixed amount
)

func (k DiscountKind) String() string {
	if k == DiscountFlat {
		return "fixed"
	}
	return "percentage"
}

// Discount is an entry of the discount code table.
type Discount struct {
	Code  string
	Kind  DiscountKind
	Value decimal.Decimal // fraction for DiscountPercentage, amount for DiscountFlat
}

var discountTable = map[string]Discount{
	"SAVE10":    {Code: "SAVE10", Kind: DiscountPercentage, Value: decimal.RequireFromString("0.10")},
	"WELCOME10": {Code: "WELCOME10", Kind: DiscountPercentage, Value: decimal.RequireFromString("0.10")},
	"SAVE20":    {Code: "SAVE20", Kind: DiscountPercentage, Value: decimal.RequireFromString("0.20")},
	"VIP20":     {Code: "VIP20", Kind: DiscountPercentage, Value: decimal.RequireFromString("0.20")},
	"FREESHIP":  {Code: "FREESHIP", Kind: DiscountFlat, Value: decimal.RequireFromString("5.99")},
}

// LookupDiscount finds a code in the discount table. Codes are case-insensitive.
func LookupDiscount(code string) (Discount, bool) {
	d, ok := discountTable[strings.ToUpper(strings.TrimSpace(code))]
	return d, ok
}

// AmountFor returns the discount granted on the given subtotal, rounded to cents.
func (d Discount) AmountFor(subtotal decimal.Decimal) decimal.Decimal {
	if d.Kind == DiscountFlat {
		return d.Value.Round(moneyPlaces)
	}
	return subtotal.Mul(d.Value).Round(moneyPlaces)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// Round rounds half away from zero to two decimal places.
func Round(f float64) float64 {
	return decimal.NewFromFloat(f).Round(moneyPlaces).InexactFloat64()
}

func money(d decimal.Decimal) doc.Value {
	return doc.Num(d.Round(moneyPlaces).InexactFloat64())
}

func number(d doc.Document, field string) decimal.Decimal {
	f, ok := d.GetNumber(field)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
