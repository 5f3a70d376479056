package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/export"
)

type postRepository interface {
	List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindDetailByID(ctx context.Context, id string) (*models.PostDetail, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

type postCategoryFinder interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

// Export formats supported by the posts export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult carries a rendered export document.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// CreatePostRequest represents the payload for creating posts. Thumbnail is
// filled in by the handler after the uploaded file has been stored.
type CreatePostRequest struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
	CategoryID  string `validate:"required"`
	UserID      string `validate:"required"`
	Thumbnail   string `validate:"required"`
	Status      *int
}

// UpdatePostRequest represents the payload for updating posts. Thumbnail is
// optional; when empty the existing file is kept.
type UpdatePostRequest struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
	CategoryID  string `validate:"required"`
	Thumbnail   string
	Status      *int
}

// PostService handles post management workflows.
type PostService struct {
	repo       postRepository
	categories postCategoryFinder
	files      fileRemover
	cache      *CacheService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPostService creates an instance of PostService.
func NewPostService(repo postRepository, categories postCategoryFinder, files fileRemover, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PostService{
		repo:       repo,
		categories: categories,
		files:      files,
		cache:      cache,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
	}
}

// List returns paginated posts joined with author and category.
func (s *PostService) List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, *models.Pagination, error) {
	cacheKey := fmt.Sprintf("posts:p%d:n%d:s%s:c%s:u%s", filter.Page, filter.ItemsPerPage, filter.Search, filter.CategoryID, filter.UserID)
	var cached struct {
		Posts      []models.PostDetail `json:"posts"`
		Pagination *models.Pagination  `json:"pagination"`
	}
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached.Posts, cached.Pagination, nil
	}

	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}

	pagination := models.NewPagination(total, filter.Page, filter.ItemsPerPage)

	cached.Posts = posts
	cached.Pagination = pagination
	_ = s.cache.Set(ctx, cacheKey, cached, 0)

	return posts, pagination, nil
}

// Get returns a post with its author and category.
func (s *PostService) Get(ctx context.Context, id string) (*models.PostDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	return detail, nil
}

// Create adds a new post. The category must exist.
func (s *PostService) Create(ctx context.Context, req CreatePostRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category")
	}

	status := 1
	if req.Status != nil {
		status = *req.Status
	}
	post := &models.Post{
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		Status:      status,
		UserID:      req.UserID,
		CategoryID:  req.CategoryID,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}

	s.invalidate(ctx)
	return post, nil
}

// Update modifies a post. A new thumbnail replaces the old file on disk.
func (s *PostService) Update(ctx context.Context, id string, req UpdatePostRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category")
	}

	oldThumbnail := post.Thumbnail
	post.Title = req.Title
	post.Description = req.Description
	post.CategoryID = req.CategoryID
	if req.Status != nil {
		post.Status = *req.Status
	}
	if req.Thumbnail != "" {
		post.Thumbnail = req.Thumbnail
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update post")
	}

	if req.Thumbnail != "" && oldThumbnail != "" && oldThumbnail != req.Thumbnail {
		if err := s.files.Delete(oldThumbnail); err != nil {
			s.logger.Warn("failed to remove replaced thumbnail", zap.String("path", oldThumbnail), zap.Error(err))
		}
	}

	s.invalidate(ctx)
	return post, nil
}

// Delete removes a post and its stored thumbnail file.
func (s *PostService) Delete(ctx context.Context, id string) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	if err := s.deleteOne(ctx, post); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// DeleteMany removes multiple posts and their thumbnail files.
func (s *PostService) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		post, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "post not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
		}
		if err := s.deleteOne(ctx, post); err != nil {
			return err
		}
	}

	s.invalidate(ctx)
	return nil
}

func (s *PostService) deleteOne(ctx context.Context, post *models.Post) error {
	if post.Thumbnail != "" {
		if err := s.files.Delete(post.Thumbnail); err != nil {
			s.logger.Error("failed to remove thumbnail file", zap.String("path", post.Thumbnail), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove thumbnail file")
		}
	}
	if err := s.repo.Delete(ctx, post.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	return nil
}

// Export renders the filtered posts as CSV or PDF.
func (s *PostService) Export(ctx context.Context, filter models.PostFilter, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	posts, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts for export")
	}

	table := export.Table{
		Columns: []string{"ID", "Title", "Description", "Status", "Author", "Category", "Created At"},
		Rows:    make([][]string, 0, len(posts)),
	}
	for _, post := range posts {
		table.Rows = append(table.Rows, []string{
			post.ID,
			post.Title,
			post.Description,
			strconv.Itoa(post.Status),
			post.User.FirstName + " " + post.User.LastName,
			post.Category.Name,
			post.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(table, "Posts")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: "posts.pdf"}, nil
	default:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: "posts.csv"}, nil
	}
}

func (s *PostService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "posts:*")
	_ = s.cache.Invalidate(ctx, "users:*")
	_ = s.cache.Invalidate(ctx, "categories:*")
}
