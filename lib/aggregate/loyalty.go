package aggregate

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/shopspring/decimal"
)

// Loyalty card field names.
const (
	FieldPointsBalance = "points_balance"
	FieldTransactions  = "transactions"
	FieldPoints        = "points"
)

var ErrInvalidLedgerEntry = errors.New("ledger entry needs numeric points")

// AppendLedger appends entry to the card's transactions and adds its points to
// points_balance. Both fields are written together; the entry is stored as given.
// Points may be negative.
func AppendLedger(card doc.Document, entry doc.Document) error {
	points, ok := entry.GetNumber(FieldPoints)
	if !ok {
		return ErrInvalidLedgerEntry
	}

	txs, _ := card.GetList(FieldTransactions)
	txs = append(txs, doc.Map(entry.Clone()))

	balance := number(card, FieldPointsBalance).Add(decimal.NewFromFloat(points))

	card[FieldTransactions] = doc.List(txs...)
	card[FieldPointsBalance] = doc.Num(balance.InexactFloat64())
	return nil
}

// NextEntryID returns <prefix><nnn> for the next ledger entry of the card, starting at
// the number of entries plus one and bumped past ids that are taken.
func NextEntryID(card doc.Document, prefix string) string {
	txs, _ := card.GetList(FieldTransactions)
	taken := make(map[string]bool, len(txs))
	for _, v := range txs {
		if e, ok := v.AsDocument(); ok {
			if id, ok := e.ID(); ok {
				taken[id] = true
			}
		}
	}
	for n := len(txs) + 1; ; n++ {
		if id := fmt.Sprintf("%s%03d", prefix, n); !taken[id] {
			return id
		}
	}
}

// LedgerBalance sums the points of every transaction on the card. For a card only ever
// changed through AppendLedger it equals points_balance minus the balance the card started with.
func LedgerBalance(card doc.Document) float64 {
	txs, _ := card.GetList(FieldTransactions)
	sum := decimal.Zero
	for _, v := range txs {
		if e, ok := v.AsDocument(); ok {
			sum = sum.Add(number(e, FieldPoints))
		}
	}
	return sum.InexactFloat64()
}
