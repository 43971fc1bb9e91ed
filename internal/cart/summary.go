package cart

import (
	"github.com/angelmondragon/velocity-backend/internal/catalog"
	"github.com/angelmondragon/velocity-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SummaryItem is a line joined with the live catalog state. Product is nil
// when the product no longer exists.
type SummaryItem struct {
	LineItem
	Product   *catalog.Product
	Available bool
	LineTotal decimal.Decimal
}

// Summary is the derived view of a cart. It is recomputed on every read.
type Summary struct {
	Owner     Owner
	Items     []SummaryItem
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// Issue describes one problem found on a cart line.
type Issue struct {
	ProductID    uuid.UUID
	Type         enums.CartIssueType
	Message      string
	Requested    int
	Available    int
	PriceAtTime  decimal.Decimal
	CurrentPrice decimal.Decimal
}

// Validation is the read-only diagnostic of a cart against the catalog.
type Validation struct {
	IsValid  bool
	Errors   []Issue
	Warnings []Issue
	Items    []SummaryItem
}

// MergeResult reports what a session-to-user merge did.
type MergeResult struct {
	Moved      int
	Combined   int
	Warnings   []Issue
	Validation *Validation
	Summary    *Summary
}
