package aggregate

import (
	"github.com/ValentinKolb/dCommerce/lib/doc"
)

const FieldInventory = "inventory"

// StoreAvailability returns the on-hand quantity of productID at one store location.
// A store without an entry (or with a non-numeric one) has 0.
func StoreAvailability(store doc.Document, productID string) float64 {
	inv, ok := store.GetDocument(FieldInventory)
	if !ok {
		return 0
	}
	qty, _ := inv.GetNumber(productID)
	return qty
}

// TotalAvailability sums the quantity of productID over every store location.
func TotalAvailability(stores []doc.Document, productID string) float64 {
	total := 0.0
	for _, s := range stores {
		total += StoreAvailability(s, productID)
	}
	return total
}
