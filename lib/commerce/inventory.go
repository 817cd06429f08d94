package commerce

import (
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
)

// ProductAvailability returns the quantity of the product on hand. With a storeID only
// that store is counted, otherwise the sum over all stores.
func (s *Service) ProductAvailability(productID, storeID string) (float64, error) {
	if storeID != "" {
		st, err := s.mustRead(CollStores, storeID, ErrStoreNotFound)
		if err != nil {
			return 0, err
		}
		return aggregate.StoreAvailability(st, productID), nil
	}

	stores, err := s.readAll(CollStores, nil)
	if err != nil {
		return 0, err
	}
	return aggregate.TotalAvailability(stores, productID), nil
}

// CustomerOrders returns all sales orders of the customer in insertion order.
func (s *Service) CustomerOrders(customerID string) ([]doc.Document, error) {
	orders, err := s.readAll(CollSalesOrders, query.Filters{"customer_id": doc.Str(customerID)})
	if err != nil {
		return nil, fmt.Errorf("orders of customer %s: %w", customerID, err)
	}
	return orders, nil
}
