package enums

import "fmt"

// CartOwnerKind distinguishes authenticated carts from anonymous ones.
type CartOwnerKind string

const (
	CartOwnerKindUser    CartOwnerKind = "user"
	CartOwnerKindSession CartOwnerKind = "session"
)

// String implements fmt.Stringer.
func (k CartOwnerKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k CartOwnerKind) IsValid() bool {
	return k == CartOwnerKindUser || k == CartOwnerKindSession
}

// ParseCartOwnerKind converts raw input into a CartOwnerKind.
func ParseCartOwnerKind(value string) (CartOwnerKind, error) {
	k := CartOwnerKind(value)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid cart owner kind %q", value)
	}
	return k, nil
}
