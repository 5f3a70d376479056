package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/hash"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

type userPostRepository interface {
	DeleteByUserID(ctx context.Context, userID string) error
	SummariesByUserIDs(ctx context.Context, userIDs []string) ([]models.PostSummary, error)
}

// fileRemover deletes stored upload files by relative path.
type fileRemover interface {
	Delete(filename string) error
}

// CreateUserRequest represents the payload for creating users.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Status    int    `json:"status"`
}

// UpdateUserRequest represents the payload for updating users.
type UpdateUserRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Status    *int   `json:"status"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	posts     userPostRepository
	files     fileRemover
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, posts userPostRepository, files fileRemover, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, posts: posts, files: files, cache: cache, validator: validate, logger: logger}
}

// List returns paginated users with their posts preloaded.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	cacheKey := fmt.Sprintf("users:p%d:n%d:s%s", filter.Page, filter.ItemsPerPage, filter.Search)
	var cached struct {
		Users      []models.User      `json:"users"`
		Pagination *models.Pagination `json:"pagination"`
	}
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached.Users, cached.Pagination, nil
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	if len(users) > 0 {
		ids := make([]string, 0, len(users))
		for _, user := range users {
			ids = append(ids, user.ID)
		}
		summaries, err := s.posts.SummariesByUserIDs(ctx, ids)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to preload posts")
		}
		byOwner := make(map[string][]models.PostSummary, len(users))
		for _, summary := range summaries {
			byOwner[summary.OwnerID] = append(byOwner[summary.OwnerID], summary)
		}
		for i := range users {
			users[i].Posts = byOwner[users[i].ID]
		}
	}

	pagination := models.NewPagination(total, filter.Page, filter.ItemsPerPage)

	cached.Users = users
	cached.Pagination = pagination
	_ = s.cache.Set(ctx, cacheKey, cached, 0)

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	// Emails are stored lowercased, so every lookup normalizes first.
	email := strings.ToLower(req.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	digest, err := hash.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	status := req.Status
	if status == 0 {
		status = 1
	}
	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Status:       status,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.invalidate(ctx)
	return user, nil
}

// Update modifies user profile fields.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.invalidate(ctx)
	return user, nil
}

// UpdateAvatar stores the path of a freshly uploaded avatar.
func (s *UserService) UpdateAvatar(ctx context.Context, id, avatar string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, id, avatar); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update avatar")
	}

	user.Avatar = &avatar
	s.invalidate(ctx)
	return user, nil
}

// Delete removes a user, cascading to their posts and removing the stored
// avatar file.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.deleteOne(ctx, user); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// DeleteMany removes multiple users with the same cascade semantics.
func (s *UserService) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		user, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.deleteOne(ctx, user); err != nil {
			return err
		}
	}

	s.invalidate(ctx)
	return nil
}

func (s *UserService) deleteOne(ctx context.Context, user *models.User) error {
	// Thumbnail files of the cascade-deleted posts stay on disk.
	if err := s.posts.DeleteByUserID(ctx, user.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user posts")
	}

	// Post rows are already gone at this point; a failed avatar removal
	// leaves the user row behind. There is no transaction spanning the
	// database and the filesystem, so the failure surfaces to the caller.
	if user.Avatar != nil && *user.Avatar != "" {
		if err := s.files.Delete(*user.Avatar); err != nil {
			s.logger.Error("failed to remove avatar file", zap.String("path", *user.Avatar), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove avatar file")
		}
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}

func (s *UserService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "users:*")
	_ = s.cache.Invalidate(ctx, "posts:*")
}
