package enums

import "fmt"

// CartIssueType enumerates the problems a cart validation can report per line.
type CartIssueType string

const (
	CartIssueTypeProductNotFound   CartIssueType = "product_not_found"
	CartIssueTypeProductInactive   CartIssueType = "product_inactive"
	CartIssueTypeInsufficientStock CartIssueType = "insufficient_stock"
	CartIssueTypePriceChanged      CartIssueType = "price_changed"
	CartIssueTypeClampedToMax      CartIssueType = "clamped_to_max"
)

var validCartIssueTypes = []CartIssueType{
	CartIssueTypeProductNotFound,
	CartIssueTypeProductInactive,
	CartIssueTypeInsufficientStock,
	CartIssueTypePriceChanged,
	CartIssueTypeClampedToMax,
}

// String implements fmt.Stringer.
func (c CartIssueType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CartIssueType) IsValid() bool {
	for _, candidate := range validCartIssueTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// Blocking reports whether the issue makes a cart invalid. Price changes and
// clamped quantities are informational only.
func (c CartIssueType) Blocking() bool {
	switch c {
	case CartIssueTypeProductNotFound, CartIssueTypeProductInactive, CartIssueTypeInsufficientStock:
		return true
	default:
		return false
	}
}

// ParseCartIssueType converts raw input into a CartIssueType.
func ParseCartIssueType(value string) (CartIssueType, error) {
	for _, candidate := range validCartIssueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart issue type %q", value)
}
