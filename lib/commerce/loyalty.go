package commerce

import (
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/shopspring/decimal"
)

// Ledger entry types.
const (
	LedgerEarned      = "Earned"
	LedgerRedeemed    = "Redeemed"
	LedgerTransferOut = "TransferOut"
	LedgerTransferIn  = "TransferIn"
	LedgerIDPrefix    = "LOYT"

	DefaultTier = "Bronze"
)

// PointValue is the currency value of one redeemed point.
var PointValue = decimal.RequireFromString("0.05")

// Redemption is the result of RedeemPoints.
type Redemption struct {
	Card  doc.Document `json:"card"`
	Value float64      `json:"redemption_value"`
}

// IssueCard creates an active loyalty card for the customer. If initialPoints is positive
// the card starts with an Earned entry of that many points.
func (s *Service) IssueCard(customerID, tier string, initialPoints float64) (doc.Document, error) {
	if tier == "" {
		tier = DefaultTier
	}
	if initialPoints < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoints, initialPoints)
	}

	id, err := s.store.Create(CollLoyaltyCards, doc.Document{
		"customer_id":                doc.Str(customerID),
		"tier":                       doc.Str(tier),
		"status":                     doc.Str("Active"),
		"created_date":               s.timestamp(),
		aggregate.FieldPointsBalance: doc.Int(0),
		aggregate.FieldTransactions:  doc.List(),
	})
	if err != nil {
		return nil, fmt.Errorf("create loyalty card: %w", err)
	}

	card, err := s.applyToCard(id, aggregate.SetFields(doc.Document{"card_number": doc.Str(id)}))
	if err != nil {
		return nil, err
	}
	if initialPoints > 0 {
		return s.EarnPoints(id, initialPoints, "Initial credit", "")
	}
	return card, nil
}

// EarnPoints credits points to the card. reason and orderID are recorded on the ledger
// entry when set.
func (s *Service) EarnPoints(cardID string, points float64, reason, orderID string) (doc.Document, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoints, points)
	}
	entry := s.ledgerEntry(points, LedgerEarned)
	if reason != "" {
		entry["reason"] = doc.Str(reason)
	}
	if orderID != "" {
		entry["order_id"] = doc.Str(orderID)
	}
	return s.appendLedger(cardID, entry)
}

// RedeemPoints debits points from the card and returns the currency value of the redemption.
// The balance is not floored: redeeming more than the balance leaves it negative.
func (s *Service) RedeemPoints(cardID string, points float64) (Redemption, error) {
	if points <= 0 {
		return Redemption{}, fmt.Errorf("%w: %v", ErrInvalidPoints, points)
	}
	card, err := s.appendLedger(cardID, s.ledgerEntry(-points, LedgerRedeemed))
	if err != nil {
		return Redemption{}, err
	}
	value := decimal.NewFromFloat(points).Mul(PointValue).Round(2)
	return Redemption{Card: card, Value: value.InexactFloat64()}, nil
}

// TransferPoints moves points from one card to another. Both ledgers record the transfer.
// If crediting the target fails, the debit is reverted with a compensating entry.
func (s *Service) TransferPoints(fromCardID, toCardID string, points float64) (from, to doc.Document, err error) {
	if points <= 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPoints, points)
	}
	if _, err := s.mustRead(CollLoyaltyCards, toCardID, ErrCardNotFound); err != nil {
		return nil, nil, err
	}

	out := s.ledgerEntry(-points, LedgerTransferOut)
	out["to_card_id"] = doc.Str(toCardID)
	if from, err = s.appendLedger(fromCardID, out); err != nil {
		return nil, nil, err
	}

	in := s.ledgerEntry(points, LedgerTransferIn)
	in["from_card_id"] = doc.Str(fromCardID)
	if to, err = s.appendLedger(toCardID, in); err != nil {
		log.Warningf("transfer of %v points from %s to %s failed, reverting debit: %v", points, fromCardID, toCardID, err)
		revert := s.ledgerEntry(points, LedgerTransferIn)
		revert["reason"] = doc.Str("Transfer reverted")
		if _, rerr := s.appendLedger(fromCardID, revert); rerr != nil {
			log.Errorf("reverting debit on %s failed: %v", fromCardID, rerr)
		}
		return nil, nil, err
	}
	return from, to, nil
}

// Balance returns the points balance of the card.
func (s *Service) Balance(cardID string) (float64, error) {
	card, err := s.mustRead(CollLoyaltyCards, cardID, ErrCardNotFound)
	if err != nil {
		return 0, err
	}
	balance, _ := card.GetNumber(aggregate.FieldPointsBalance)
	return balance, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// ledgerEntry builds a ledger entry dated now. Its LOYT<nnn> id is assigned by the store
// while the card is held, see appendLedger.
func (s *Service) ledgerEntry(points float64, kind string) doc.Document {
	return doc.Document{
		"date":                s.timestamp(),
		aggregate.FieldPoints: doc.Num(points),
		"type":                doc.Str(kind),
	}
}

// appendLedger appends entry to the card under the next free ledger id.
func (s *Service) appendLedger(cardID string, entry doc.Document) (doc.Document, error) {
	return s.applyToCard(cardID, aggregate.NumberedLedger(LedgerIDPrefix, entry))
}

// applyToCard runs m on the card and maps a missing card to ErrCardNotFound.
func (s *Service) applyToCard(cardID string, m aggregate.Mutation) (doc.Document, error) {
	card, found, err := s.store.Apply(CollLoyaltyCards, cardID, m)
	if err != nil {
		return nil, fmt.Errorf("%s on loyalty card %s: %w", m.Type, cardID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	return card, nil
}
