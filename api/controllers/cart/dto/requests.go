package cartdto

import "github.com/google/uuid"

// AddItemRequest adds quantity units of a product. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity" validate:"omitempty,min=1"`
}

// UpdateItemRequest sets the absolute quantity; zero or less removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// MergeRequest names the anonymous cart to fold into the caller's user cart.
// The session id falls back to the request's session header or cookie.
type MergeRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}
