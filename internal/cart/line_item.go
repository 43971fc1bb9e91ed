package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one product's presence in a cart. Quantity is always positive;
// a line that would drop to zero is removed instead.
type LineItem struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	PriceAtTime decimal.Decimal
	AddedAt     time.Time
	UpdatedAt   time.Time
}

// LineTotal returns PriceAtTime × Quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.PriceAtTime.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func findLine(lines []LineItem, productID uuid.UUID) (LineItem, bool) {
	for _, line := range lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return LineItem{}, false
}
