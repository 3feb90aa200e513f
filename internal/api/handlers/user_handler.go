// Package handlers contains the handlers for the API
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/repository"
	"github.com/tagbin/tagbinapi/pkg/utils/response"
	"gorm.io/gorm"
)

// UserHandler serves public user lookups
type UserHandler struct {
	repo *repository.UserRepository
}

// NewUserHandler creates a new handler for user lookups
func NewUserHandler(db *gorm.DB, redisClient *redis.Client) *UserHandler {
	return &UserHandler{repo: repository.NewUserRepository(db, redisClient)}
}

// userProjection is the public shape of an account. The password hash
// and observed addresses never leave the server.
type userProjection struct {
	UserID          string `json:"userid"`
	Username        string `json:"username"`
	Frozen          bool   `json:"frozen"`
	PermissionLevel int    `json:"permissionlevel"`
}

func projectUser(user *models.UserModel) userProjection {
	return userProjection{
		UserID:          user.UserID,
		Username:        user.Username,
		Frozen:          user.Frozen,
		PermissionLevel: user.PermissionLevel,
	}
}

// GetUserByID returns the public projection of the user with the given id
func (h *UserHandler) GetUserByID(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		userID = c.QueryParam("id")
	}
	if userID == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`id` is required")
	}

	user, err := h.repo.GetUserByID(userID)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	if user == nil {
		return response.NotFoundResponse(c, "User not found")
	}

	return response.SuccessResponse(c, projectUser(user))
}

// GetUserByUsername returns the public projection of the user with the
// given username, matched case-insensitively.
func (h *UserHandler) GetUserByUsername(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		username = c.QueryParam("username")
	}
	if username == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`username` is required")
	}

	user, err := h.repo.GetUserByUsername(username)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	if user == nil {
		return response.NotFoundResponse(c, "User not found")
	}

	return response.SuccessResponse(c, projectUser(user))
}
