package commerce

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("commerce")

// Collections used by the service.
const (
	CollCarts        = "carts"
	CollProducts     = "products"
	CollSalesOrders  = "sales_orders"
	CollLoyaltyCards = "loyalty_cards"
	CollStores       = "stores"
	CollCustomers    = "customers"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartClosed      = errors.New("cart is not active")
	ErrEmptyCart       = errors.New("cannot checkout empty cart")
	ErrOrderNotFound   = errors.New("sales order not found")
	ErrCardNotFound    = errors.New("loyalty card not found")
	ErrStoreNotFound   = errors.New("store not found")
	ErrInvalidPoints   = errors.New("points must be positive")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// pageSize is the page size used when a whole collection is read through List.
const pageSize = 100

// Service implements the commerce workflows on top of any store.IStore.
// Every state change of a single document is one atomic store operation; workflows
// that touch several documents (checkout, transfers) are sequences of such operations.
type Service struct {
	store store.IStore
	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for order and ledger dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDSource replaces the source of the random part of order numbers and transaction ids.
// The returned string should consist of at least six hex digits.
func WithIDSource(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a commerce service that keeps its state in s.
func NewService(s store.IStore, opts ...Option) *Service {
	svc := &Service{
		store: s,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// shortID returns prefix plus six upper-case hex digits taken from the id source.
func (s *Service) shortID(prefix string) string {
	hex := strings.ToUpper(strings.ReplaceAll(s.newID(), "-", ""))
	if len(hex) > 6 {
		hex = hex[:6]
	}
	return prefix + hex
}

func (s *Service) timestamp() doc.Value {
	return doc.Str(s.now().UTC().Format(time.RFC3339))
}

// readAll returns every document of the collection matching filters, paging through List.
func (s *Service) readAll(collection string, filters query.Filters) ([]doc.Document, error) {
	var all []doc.Document
	for offset := 0; ; offset += pageSize {
		page, err := s.store.List(collection, pageSize, offset, filters)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// mustRead reads a document and maps a missing one to notFound.
func (s *Service) mustRead(collection, id string, notFound error) (doc.Document, error) {
	d, found, err := s.store.Read(collection, id)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", notFound, id)
	}
	return d, nil
}
