// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tagbin/tagbinapi/internal/api/middleware"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/pkg/utils/auditlog"
	"github.com/tagbin/tagbinapi/pkg/utils/response"
)

// Redirect error codes carried in the query string of the bounce-back
// location, for the form pages to render.
const (
	formErrorInvalidInput  = "0"
	formErrorUsernameTaken = "1"
)

// AuthHandler is the handler for signup, login and logout
type AuthHandler struct {
	service *service.AuthService
	audit   *auditlog.Logger
}

// NewAuthHandler creates a new handler for account authentication
func NewAuthHandler(authService *service.AuthService, audit *auditlog.Logger) *AuthHandler {
	return &AuthHandler{service: authService, audit: audit}
}

// Signup creates an account from the signup form and issues a session
func (h *AuthHandler) Signup(c echo.Context) error {
	if middleware.IsAuthorized(c) {
		return c.Redirect(http.StatusSeeOther, "/profile")
	}

	username := c.FormValue("username")
	password := c.FormValue("password")

	user, session, err := h.service.Signup(username, password, c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentialFormat):
			return c.Redirect(http.StatusSeeOther, "/signup?error="+formErrorInvalidInput+"&username="+url.QueryEscape(username))
		case errors.Is(err, service.ErrUsernameTaken):
			return c.Redirect(http.StatusSeeOther, "/signup?error="+formErrorUsernameTaken+"&username="+url.QueryEscape(username))
		default:
			return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
		}
	}

	h.audit.Info(&user.UserID, "Account created", map[string]interface{}{"ip": c.RealIP(), "username": user.Username})

	setSessionCookie(c, session)
	return c.Redirect(http.StatusSeeOther, "/profile")
}

// Login verifies the login form and issues a session. Unknown user and
// wrong password produce the same redirect so responses never reveal
// whether an account exists.
func (h *AuthHandler) Login(c echo.Context) error {
	if middleware.IsAuthorized(c) {
		return c.Redirect(http.StatusSeeOther, "/profile")
	}

	username := c.FormValue("username")
	password := c.FormValue("password")

	user, session, err := h.service.Login(username, password, c.RealIP())
	if err != nil {
		if errors.Is(err, service.ErrLoginFailed) {
			return c.Redirect(http.StatusSeeOther, "/login?error="+formErrorInvalidInput+"&username="+url.QueryEscape(username))
		}
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}

	h.audit.Info(&user.UserID, "Login", map[string]interface{}{"ip": c.RealIP()})

	setSessionCookie(c, session)
	return c.Redirect(http.StatusSeeOther, "/profile")
}

// Logout revokes the presented session and clears the cookie
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.AuthCookieName); err == nil {
		if err := h.service.Logout(cookie.Value); err != nil {
			return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
		}
	}
	clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

// ActivateSession installs a known session id as the caller's cookie
// and bounces to the profile page. Used after an impersonation grant.
func (h *AuthHandler) ActivateSession(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		sessionID = c.QueryParam("sessionid")
	}

	session, err := h.service.Sessions().GetSession(sessionID)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	if session == nil {
		return response.NotFoundResponse(c, "Session not found")
	}

	setSessionCookie(c, session)
	return c.Redirect(http.StatusSeeOther, "/profile")
}

// setSessionCookie installs the bearer token under the contract the
// clients rely on: SameSite=Strict, Secure, HttpOnly, expiry matching
// the session's.
func setSessionCookie(c echo.Context, session *models.SessionModel) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    session.SessionID,
		Path:     "/",
		Expires:  session.ExpiryTime(),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
