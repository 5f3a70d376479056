package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-api/internal/middleware"
	"github.com/noah-isme/blog-api/internal/models"
	"github.com/noah-isme/blog-api/internal/service"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/response"
	"github.com/noah-isme/blog-api/pkg/storage"
)

// PostHandler handles post CRUD and export endpoints.
type PostHandler struct {
	service *service.PostService
	uploads *storage.UploadStorage
}

// NewPostHandler creates a new post handler.
func NewPostHandler(svc *service.PostService, uploads *storage.UploadStorage) *PostHandler {
	return &PostHandler{service: svc, uploads: uploads}
}

// List godoc
// @Summary List posts
// @Description List posts with pagination, search and author/category preloads
// @Tags Posts
// @Produce json
// @Param page query int false "Page number"
// @Param items_per_page query int false "Items per page"
// @Param search query string false "Search term"
// @Param category_id query string false "Filter by category"
// @Param user_id query string false "Filter by author"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	filter := h.filterFromQuery(c)

	posts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, posts, pagination)
}

// Get godoc
// @Summary Get post
// @Description Get post detail with author and category
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create post
// @Description Create a post with a multipart thumbnail upload
// @Tags Posts
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category_id formData string true "Category ID"
// @Param thumbnail formData file true "Thumbnail image (.jpg, .jpeg, .png, max 5 MiB)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	header, err := c.FormFile("thumbnail")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "thumbnail file is required"))
		return
	}

	path, err := h.uploads.Save("thumbnail", header)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}

	req := service.CreatePostRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		CategoryID:  c.PostForm("category_id"),
		UserID:      claims.UserID,
		Thumbnail:   path,
	}
	if raw := c.PostForm("status"); raw != "" {
		if status, err := strconv.Atoi(raw); err == nil {
			req.Status = &status
		}
	}

	post, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// Update godoc
// @Summary Update post
// @Description Update a post; a new thumbnail upload replaces the old file
// @Tags Posts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category_id formData string true "Category ID"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [put]
func (h *PostHandler) Update(c *gin.Context) {
	req := service.UpdatePostRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		CategoryID:  c.PostForm("category_id"),
	}
	if raw := c.PostForm("status"); raw != "" {
		if status, err := strconv.Atoi(raw); err == nil {
			req.Status = &status
		}
	}

	if header, err := c.FormFile("thumbnail"); err == nil {
		path, err := h.uploads.Save("thumbnail", header)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
			return
		}
		req.Thumbnail = path
	}

	post, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete post
// @Description Delete a post and its thumbnail file
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteMany godoc
// @Summary Delete multiple posts
// @Description Delete several posts by comma-separated ids
// @Tags Posts
// @Produce json
// @Param ids query string true "Comma-separated post IDs"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/multiple [delete]
func (h *PostHandler) DeleteMany(c *gin.Context) {
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

// Export godoc
// @Summary Export posts
// @Description Export the filtered posts as CSV or PDF
// @Tags Posts
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf (default csv)"
// @Param search query string false "Search term"
// @Param category_id query string false "Filter by category"
// @Param user_id query string false "Filter by author"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /posts/export [get]
func (h *PostHandler) Export(c *gin.Context) {
	filter := h.filterFromQuery(c)
	// Exports are not paginated; dump everything matching the filter.
	filter.Page = 1
	filter.ItemsPerPage = 10000

	result, err := h.service.Export(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func (h *PostHandler) filterFromQuery(c *gin.Context) models.PostFilter {
	filter := models.PostFilter{
		Search:     c.Query("search"),
		CategoryID: c.Query("category_id"),
		UserID:     c.Query("user_id"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("items_per_page", "10")); err == nil {
		filter.ItemsPerPage = size
	}
	return filter
}
