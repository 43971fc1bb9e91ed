package cart

import (
	"strings"

	"github.com/angelmondragon/velocity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/google/uuid"
)

// Owner addresses a cart by exactly one of an authenticated user id or an
// anonymous session id.
type Owner struct {
	UserID    uuid.UUID
	SessionID string
}

// ForUser returns the owner of an authenticated user's cart.
func ForUser(id uuid.UUID) Owner {
	return Owner{UserID: id}
}

// ForSession returns the owner of an anonymous session's cart.
func ForSession(id string) Owner {
	return Owner{SessionID: strings.TrimSpace(id)}
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.UserID != uuid.Nil
}

// Kind returns the owner kind.
func (o Owner) Kind() enums.CartOwnerKind {
	if o.IsUser() {
		return enums.CartOwnerKindUser
	}
	return enums.CartOwnerKindSession
}

// Key renders a stable identifier used for locks, map keys and logs.
func (o Owner) Key() string {
	if o.IsUser() {
		return "user:" + o.UserID.String()
	}
	return "session:" + o.SessionID
}

// Validate fails with OWNER_REQUIRED unless exactly one identity is set.
func (o Owner) Validate() error {
	hasUser := o.IsUser()
	hasSession := o.SessionID != ""
	switch {
	case hasUser && hasSession:
		return pkgerrors.New(pkgerrors.CodeOwnerRequired, "cart owner must be a user or a session, not both")
	case !hasUser && !hasSession:
		return pkgerrors.New(pkgerrors.CodeOwnerRequired, "cart owner is required")
	}
	return nil
}
