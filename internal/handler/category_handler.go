package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-api/internal/models"
	"github.com/noah-isme/blog-api/internal/service"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/response"
)

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	service *service.CategoryService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// List godoc
// @Summary List categories
// @Description List categories with pagination, search and preloaded posts
// @Tags Categories
// @Produce json
// @Param page query int false "Page number"
// @Param items_per_page query int false "Items per page"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	filter := models.CategoryFilter{Search: c.Query("search")}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("items_per_page", "10")); err == nil {
		filter.ItemsPerPage = size
	}

	categories, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, categories, pagination)
}

// Get godoc
// @Summary Get category
// @Description Get category detail by ID
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, category, nil)
}

// Create godoc
// @Summary Create category
// @Description Create a new category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, category)
}

// Update godoc
// @Summary Update category
// @Description Update category fields
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete category
// @Description Delete a category and its posts
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteMany godoc
// @Summary Delete multiple categories
// @Description Delete several categories by comma-separated ids
// @Tags Categories
// @Produce json
// @Param ids query string true "Comma-separated category IDs"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/multiple [delete]
func (h *CategoryHandler) DeleteMany(c *gin.Context) {
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
