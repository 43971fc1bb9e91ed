package cart

import (
	"net/http"

	"github.com/angelmondragon/velocity-backend/api/middleware"
	cartsvc "github.com/angelmondragon/velocity-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/google/uuid"
)

const productIDParam = "productId"

// ownerFromRequest picks the user cart when the caller is authenticated and
// the session cart otherwise.
func ownerFromRequest(r *http.Request) (cartsvc.Owner, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
		return cartsvc.ForUser(userID), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return cartsvc.ForSession(sessionID), nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeOwnerRequired, "sign in or send a session id to use a cart")
}
