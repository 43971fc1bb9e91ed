package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by readers when a product id is unknown.
var ErrNotFound = errors.New("catalog: product not found")

// Product is the live catalog view the cart relies on for price and stock truth.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}

// InStock reports whether any unit is available.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// Reader resolves product ids against the catalog. Implementations read at
// call time and never serve cached state.
type Reader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}
