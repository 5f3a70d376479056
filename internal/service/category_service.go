package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, int, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

type categoryPostRepository interface {
	DeleteByCategoryID(ctx context.Context, categoryID string) error
	SummariesByCategoryIDs(ctx context.Context, categoryIDs []string) ([]models.PostSummary, error)
}

// CategoryRequest represents the payload for creating or updating categories.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Status      *int   `json:"status"`
}

// CategoryService handles category management workflows.
type CategoryService struct {
	repo      categoryRepository
	posts     categoryPostRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService creates an instance of CategoryService.
func NewCategoryService(repo categoryRepository, posts categoryPostRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CategoryService{repo: repo, posts: posts, cache: cache, validator: validate, logger: logger}
}

// List returns paginated categories with their posts preloaded.
func (s *CategoryService) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, *models.Pagination, error) {
	cacheKey := fmt.Sprintf("categories:p%d:n%d:s%s", filter.Page, filter.ItemsPerPage, filter.Search)
	var cached struct {
		Categories []models.Category  `json:"categories"`
		Pagination *models.Pagination `json:"pagination"`
	}
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached.Categories, cached.Pagination, nil
	}

	categories, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}

	if len(categories) > 0 {
		ids := make([]string, 0, len(categories))
		for _, category := range categories {
			ids = append(ids, category.ID)
		}
		summaries, err := s.posts.SummariesByCategoryIDs(ctx, ids)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to preload posts")
		}
		byCategory := make(map[string][]models.PostSummary, len(categories))
		for _, summary := range summaries {
			byCategory[summary.OwnerID] = append(byCategory[summary.OwnerID], summary)
		}
		for i := range categories {
			categories[i].Posts = byCategory[categories[i].ID]
		}
	}

	pagination := models.NewPagination(total, filter.Page, filter.ItemsPerPage)

	cached.Categories = categories
	cached.Pagination = pagination
	_ = s.cache.Set(ctx, cacheKey, cached, 0)

	return categories, pagination, nil
}

// Get returns a category by ID.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// Create adds a new category.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	status := 1
	if req.Status != nil {
		status = *req.Status
	}
	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}

	s.invalidate(ctx)
	return category, nil
}

// Update modifies a category.
func (s *CategoryService) Update(ctx context.Context, id string, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = req.Name
	category.Description = req.Description
	if req.Status != nil {
		category.Status = *req.Status
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}

	s.invalidate(ctx)
	return category, nil
}

// Delete removes a category and cascades to its posts.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	// Thumbnail files of the cascade-deleted posts stay on disk.
	if err := s.posts.DeleteByCategoryID(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category posts")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}

	s.invalidate(ctx)
	return nil
}

// DeleteMany removes multiple categories with the same cascade semantics.
func (s *CategoryService) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		if err := s.posts.DeleteByCategoryID(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category posts")
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
		}
	}

	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "categories:*")
	_ = s.cache.Invalidate(ctx, "posts:*")
}
