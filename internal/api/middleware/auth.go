package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/pkg/utils/response"
	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
)

// AuthCookieName is the cookie carrying the bearer token
const AuthCookieName = "Authorization"

// Context keys set by ResolveIdentity
const (
	ContextKeyAuthorized = "authorized"
	ContextKeyUser       = "user"
)

// ResolveIdentity resolves the Authorization cookie to an identity and
// stores the outcome on the context without rejecting anything.
// Handlers that serve both anonymous and authenticated callers read
// the result; RequireAuth enforces it. On authorized traffic the
// client address is recorded on the account if newly seen.
func ResolveIdentity(sessionService *service.SessionService, authService *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ""
			if cookie, err := c.Cookie(AuthCookieName); err == nil {
				token = cookie.Value
			}

			authorized, user, err := sessionService.CheckAuthorization(token)
			if err != nil {
				if errors.Is(err, service.ErrSessionUserMissing) {
					// Session without a user is corrupted state, not an auth failure
					zaplogger.Error("Session integrity failure", zaplogger.Fields{"error": err.Error()})
					return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
				}
				return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
			}

			if authorized {
				if err := authService.ObserveIP(user, c.RealIP()); err != nil {
					zaplogger.Warn("Failed to record client address", zaplogger.Fields{
						"user_id": user.UserID,
						"error":   err.Error(),
					})
				}
			}

			c.Set(ContextKeyAuthorized, authorized)
			c.Set(ContextKeyUser, user)
			return next(c)
		}
	}
}

// RequireAuth rejects requests whose identity was not resolved.
// Must run after ResolveIdentity.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAuthorized(c) {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Invalid or expired session")
			}
			return next(c)
		}
	}
}

// IsAuthorized reports the identity outcome stored on the context
func IsAuthorized(c echo.Context) bool {
	authorized, ok := c.Get(ContextKeyAuthorized).(bool)
	return ok && authorized
}

// CurrentUser returns the resolved user, or nil. Note the user may be
// non-nil while unauthorized: an expired session still reports who
// failed.
func CurrentUser(c echo.Context) *models.UserModel {
	user, ok := c.Get(ContextKeyUser).(*models.UserModel)
	if !ok {
		return nil
	}
	return user
}

// RequesterID returns the authorized user's id, or the empty string
// for the anonymous caller. Visibility scoping treats the empty id as
// least-privileged.
func RequesterID(c echo.Context) string {
	if !IsAuthorized(c) {
		return ""
	}
	if user := CurrentUser(c); user != nil {
		return user.UserID
	}
	return ""
}
