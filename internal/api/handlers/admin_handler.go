// Package handlers contains the handlers for the API
package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/api/middleware"
	"github.com/tagbin/tagbinapi/internal/repository"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/pkg/utils/auditlog"
	"github.com/tagbin/tagbinapi/pkg/utils/response"
	"gorm.io/gorm"
)

// AdminHandler serves endpoints restricted to elevated accounts
type AdminHandler struct {
	users    *repository.UserRepository
	sessions *service.SessionService
	audit    *auditlog.Logger
}

// NewAdminHandler creates a new handler for admin operations
func NewAdminHandler(db *gorm.DB, redisClient *redis.Client, sessions *service.SessionService, audit *auditlog.Logger) *AdminHandler {
	return &AdminHandler{
		users:    repository.NewUserRepository(db, redisClient),
		sessions: sessions,
		audit:    audit,
	}
}

// GenerateSession issues a session for an arbitrary user — an
// impersonation grant. Requires elevated permission.
func (h *AdminHandler) GenerateSession(c echo.Context) error {
	admin := middleware.CurrentUser(c)
	if admin == nil || !admin.IsAdmin() {
		return response.ErrorResponse(c, http.StatusForbidden, "AuthorizationException", "Insufficient permission")
	}

	userID := c.FormValue("userid")
	if userID == "" {
		userID = c.QueryParam("userid")
	}
	if userID == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`userid` is required")
	}

	ttl := service.DefaultSessionTTLMillis
	if raw := c.FormValue("expiresin"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`expiresin` must be a positive integer")
		}
		ttl = parsed
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	if user == nil {
		return response.NotFoundResponse(c, "No user with given user ID")
	}

	session, err := h.sessions.CreateSession(user, ttl)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}

	h.audit.Alert(&admin.UserID, "Impersonation session granted", map[string]interface{}{
		"target_user_id": user.UserID,
		"expires":        session.Expires,
	})

	return response.SuccessResponse(c, map[string]interface{}{"sessionid": session.SessionID})
}
