package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-api/internal/middleware"
	"github.com/noah-isme/blog-api/internal/models"
	"github.com/noah-isme/blog-api/internal/service"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/response"
	"github.com/noah-isme/blog-api/pkg/storage"
)

// UserHandler handles user CRUD endpoints.
type UserHandler struct {
	service *service.UserService
	uploads *storage.UploadStorage
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService, uploads *storage.UploadStorage) *UserHandler {
	return &UserHandler{service: svc, uploads: uploads}
}

// List godoc
// @Summary List users
// @Description List users with pagination, search and preloaded posts
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param items_per_page query int false "Items per page"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{Search: c.Query("search")}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("items_per_page", "10")); err == nil {
		filter.ItemsPerPage = size
	}

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// Profile godoc
// @Summary Current user profile
// @Description Returns the authenticated user
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/profile [get]
func (h *UserHandler) Profile(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Get godoc
// @Summary Get user
// @Description Get user detail by ID
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create user
// @Description Create a new user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}

	user, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Description Update user profile fields
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.UpdateUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}

	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Description Delete a user, their posts and avatar file
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteMany godoc
// @Summary Delete multiple users
// @Description Delete several users by comma-separated ids
// @Tags Users
// @Produce json
// @Param ids query string true "Comma-separated user IDs"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/multiple [delete]
func (h *UserHandler) DeleteMany(c *gin.Context) {
	ids := splitIDs(c.Query("ids"))
	if len(ids) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ids query parameter is required"))
		return
	}

	if err := h.service.DeleteMany(c.Request.Context(), ids); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UploadAvatar godoc
// @Summary Upload avatar
// @Description Upload an avatar image for the authenticated user
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Avatar image (.jpg, .jpeg, .png, max 5 MiB)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/upload-avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "avatar file is required"))
		return
	}

	path, err := h.uploads.Save("avatar", header)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}

	user, err := h.service.UpdateAvatar(c.Request.Context(), claims.UserID, path)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
