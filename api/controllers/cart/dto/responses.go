package cartdto

import (
	"time"

	"github.com/google/uuid"
)

// Money values are decimal strings with two places.

type LineItem struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	PriceAtTime string    `json:"price_at_time"`
	LineTotal   string    `json:"line_total"`
	AddedAt     time.Time `json:"added_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Price         string    `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
}

type SummaryItem struct {
	LineItem
	Product   *Product `json:"product"`
	Available bool     `json:"available"`
}

type Summary struct {
	OwnerType string        `json:"owner_type"`
	Items     []SummaryItem `json:"items"`
	ItemCount int           `json:"item_count"`
	Subtotal  string        `json:"subtotal"`
	Tax       string        `json:"tax"`
	Shipping  string        `json:"shipping"`
	Total     string        `json:"total"`
}

type Issue struct {
	ProductID    uuid.UUID `json:"product_id"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Requested    int       `json:"requested,omitempty"`
	Available    int       `json:"available,omitempty"`
	PriceAtTime  string    `json:"price_at_time,omitempty"`
	CurrentPrice string    `json:"current_price,omitempty"`
}

type Validation struct {
	IsValid  bool          `json:"is_valid"`
	Errors   []Issue       `json:"errors"`
	Warnings []Issue       `json:"warnings"`
	Items    []SummaryItem `json:"items"`
}

// ItemMutation is returned by add and update. Item is null when an update
// removed the line.
type ItemMutation struct {
	Item    *LineItem `json:"item"`
	Summary Summary   `json:"summary"`
}

type Count struct {
	Count int `json:"count"`
}

type Merge struct {
	Moved      int        `json:"moved"`
	Combined   int        `json:"combined"`
	Warnings   []Issue    `json:"warnings"`
	Validation Validation `json:"validation"`
	Summary    Summary    `json:"summary"`
}
