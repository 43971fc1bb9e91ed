package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists line items keyed by owner. Implementations must wrap backend
// failures in STORAGE_FAILURE and never report a failed write as a success.
type Store interface {
	// Get returns the owner's lines newest first; unknown owners yield an empty list.
	Get(ctx context.Context, owner Owner) ([]LineItem, error)
	// Upsert inserts the line or overwrites quantity and price of the existing one.
	Upsert(ctx context.Context, owner Owner, productID uuid.UUID, quantity int, priceAtTime decimal.Decimal) (LineItem, error)
	// Delete removes the line and returns it, or nil when it was absent.
	Delete(ctx context.Context, owner Owner, productID uuid.UUID) (*LineItem, error)
	// DeleteAll empties the owner's cart.
	DeleteAll(ctx context.Context, owner Owner) error
	// ReassignOwner moves every line of the session cart to the user cart and
	// returns how many lines moved. Callers resolve product collisions first.
	ReassignOwner(ctx context.Context, fromSessionID string, toUserID uuid.UUID) (int, error)
	// LockOwner serializes transactions on owner where the backend supports
	// it. It is only meaningful inside InTx.
	LockOwner(ctx context.Context, owner Owner) error
	// InTx runs fn against a transactional view of the store. Effects commit
	// only when fn returns nil.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
