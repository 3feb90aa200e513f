// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tagbin/tagbinapi/internal/api/middleware"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/pkg/utils/auditlog"
	"github.com/tagbin/tagbinapi/pkg/utils/response"
)

// FileHandler serves uploads and file lookups
type FileHandler struct {
	files  *service.FileService
	search *service.SearchService
	audit  *auditlog.Logger
}

// NewFileHandler creates a new handler for files
func NewFileHandler(files *service.FileService, search *service.SearchService, audit *auditlog.Logger) *FileHandler {
	return &FileHandler{files: files, search: search, audit: audit}
}

// Upload completes a multipart upload for the authenticated user
func (h *FileHandler) Upload(c echo.Context) error {
	user := middleware.CurrentUser(c)

	fileHeader, err := c.FormFile("uploadFile")
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/upload?error=0")
	}

	if fileHeader.Size > service.MaxUploadBytes {
		// Egregious oversize: drop the connection rather than drain it
		c.Request().Body.Close()
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	defer src.Close()

	visibility := 0
	if v, err := strconv.Atoi(c.FormValue("visibility")); err == nil {
		visibility = v
	}

	var mimeType *string
	if contentType := fileHeader.Header.Get("Content-Type"); contentType != "" {
		mimeType = &contentType
	}

	params := service.UploadParams{
		FileName:    fileHeader.Filename,
		MimeType:    mimeType,
		Size:        fileHeader.Size,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Tags:        service.ParseTagFilter(c.FormValue("tags")),
		Visibility:  visibility,
		WantShort:   c.FormValue("shorturl") == "on",
	}

	file, err := h.files.Upload(user, params, src)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileQuotaExceeded):
			return c.Redirect(http.StatusSeeOther, "/upload?error=1")
		case errors.Is(err, service.ErrUploadTooLarge):
			c.Request().Body.Close()
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge)
		default:
			return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
		}
	}

	h.audit.Info(&user.UserID, "File uploaded", map[string]interface{}{
		"file_id":   file.FileID,
		"file_name": file.FileName,
		"ip":        c.RealIP(),
	})

	return c.Redirect(http.StatusSeeOther, "/file/"+user.UserID+"/"+file.FileID)
}

// GetFileByID resolves a file by id or short url. Hidden and absent
// files are indistinguishable in the response.
func (h *FileHandler) GetFileByID(c echo.Context) error {
	idOrShort := c.Param("id")
	if idOrShort == "" {
		idOrShort = c.QueryParam("id")
	}
	if idOrShort == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`id` is required")
	}

	file, err := h.files.Resolve(idOrShort, middleware.RequesterID(c))
	if err != nil {
		// Includes uniqueness-invariant violations: corrupted state aborts
		// the operation loudly instead of picking a row
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	if file == nil {
		return response.NotFoundResponse(c, "File not found")
	}

	return response.SuccessResponse(c, file)
}

// ListUserFiles returns one page of a user's files matching an
// optional tag filter. Only the owner sees non-public entries.
func (h *FileHandler) ListUserFiles(c echo.Context) error {
	ownerID := c.QueryParam("userid")
	if ownerID == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`userid` is required")
	}

	files, err := h.search.SearchUser(ownerID, middleware.RequesterID(c), c.QueryParam("tags"), pageParam(c))
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	return response.SuccessResponse(c, files)
}

// SearchFilesByTags returns one page of the visibility-scoped tag
// search. Anonymous callers see only public files.
func (h *FileHandler) SearchFilesByTags(c echo.Context) error {
	files, err := h.search.Search(middleware.RequesterID(c), c.QueryParam("tags"), pageParam(c))
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Internal error")
	}
	return response.SuccessResponse(c, files)
}

func pageParam(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
