package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/velocity-backend/api/responses"
	pkgAuth "github.com/angelmondragon/velocity-backend/pkg/auth"
	"github.com/angelmondragon/velocity-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/angelmondragon/velocity-backend/pkg/logger"
	"github.com/google/uuid"
)

// SessionHeader carries the anonymous cart session id.
const SessionHeader = "X-Session-Id"

const sessionCookieMaxAge = 30 * 24 * 60 * 60

// Identity resolves the optional bearer token and the optional session id.
// Neither is required here; handlers decide which cart the request owns.
func Identity(cfg config.JWTConfig, cookieName string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				if token == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				ctx = WithUserID(ctx, claims.UserID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID.String())
				}
			}

			if raw := r.Header.Get(SessionHeader); raw != "" {
				id, ok := pkgAuth.NormalizeSessionID(raw)
				if !ok {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid session id"))
					return
				}
				ctx = withSession(ctx, logg, id)
			} else if cookie, err := r.Cookie(cookieName); err == nil {
				// a stale or tampered cookie is dropped rather than rejected
				if id, ok := pkgAuth.NormalizeSessionID(cookie.Value); ok {
					ctx = withSession(ctx, logg, id)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EnsureSession issues a fresh session cookie when the request carries no
// identity at all, so the first add creates an anonymous cart implicitly.
func EnsureSession(cookieName string, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if UserIDFromContext(ctx) != uuid.Nil || SessionIDFromContext(ctx) != "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := pkgAuth.NewSessionID()
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session"))
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, id)

			next.ServeHTTP(w, r.WithContext(withSession(ctx, logg, id)))
		})
	}
}

func withSession(ctx context.Context, logg *logger.Logger, id string) context.Context {
	ctx = WithSessionID(ctx, id)
	if logg != nil {
		ctx = logg.WithSessionID(ctx, id)
	}
	return ctx
}
