package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/blog-api/internal/models"
)

// PostRepository provides database access for posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new instance of PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `id, title, description, thumbnail, status, user_id, category_id, created_at, updated_at`

const postDetailColumns = `p.id, p.title, p.description, p.thumbnail, p.status, p.user_id, p.category_id, p.created_at, p.updated_at,
	u.email AS user_email, u.avatar AS user_avatar, u.first_name AS user_first_name, u.last_name AS user_last_name,
	c.name AS category_name, c.description AS category_description`

type postDetailRow struct {
	models.Post
	UserEmail           string  `db:"user_email"`
	UserAvatar          *string `db:"user_avatar"`
	UserFirstName       string  `db:"user_first_name"`
	UserLastName        string  `db:"user_last_name"`
	CategoryName        string  `db:"category_name"`
	CategoryDescription string  `db:"category_description"`
}

func (row postDetailRow) detail() models.PostDetail {
	return models.PostDetail{
		Post: row.Post,
		User: models.PostAuthor{
			ID:        row.UserID,
			Email:     row.UserEmail,
			Avatar:    row.UserAvatar,
			FirstName: row.UserFirstName,
			LastName:  row.UserLastName,
		},
		Category: models.CategoryRef{
			ID:          row.CategoryID,
			Name:        row.CategoryName,
			Description: row.CategoryDescription,
		},
	}
}

// FindByID returns a post by identifier without relations.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE id = $1 LIMIT 1`, postColumns)
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return &post, nil
}

// FindDetailByID returns a post joined with its author and category.
func (r *PostRepository) FindDetailByID(ctx context.Context, id string) (*models.PostDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM posts p
		JOIN users u ON u.id = p.user_id
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 LIMIT 1`, postDetailColumns)
	var row postDetailRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find post detail: %w", err)
	}
	detail := row.detail()
	return &detail, nil
}

// List returns posts joined with author and category, filtered by keyword
// (title or description) and optional category/user, with the total count.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.ItemsPerPage
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage

	where := `(p.title LIKE $1 OR p.description LIKE $1)`
	args := []interface{}{"%" + filter.Search + "%"}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where += fmt.Sprintf(" AND p.category_id = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND p.user_id = $%d", len(args))
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM posts p
		JOIN users u ON u.id = p.user_id
		JOIN categories c ON c.id = p.category_id
		WHERE %s
		ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, postDetailColumns, where, perPage, offset)

	var rows []postDetailRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM posts p WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	details := make([]models.PostDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.detail())
	}
	return details, total, nil
}

// Create inserts a new post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO posts (id, title, description, thumbnail, status, user_id, category_id, created_at, updated_at)
		VALUES (:id, :title, :description, :thumbnail, :status, :user_id, :category_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Update updates mutable fields of a post.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE posts SET title = :title, description = :description, thumbnail = :thumbnail, status = :status, category_id = :category_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// Delete removes a post row.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM posts WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// DeleteMany removes multiple post rows.
func (r *PostRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM posts WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	return nil
}

// DeleteByUserID removes all posts owned by a user. Used for cascade deletes.
func (r *PostRepository) DeleteByUserID(ctx context.Context, userID string) error {
	const query = `DELETE FROM posts WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete posts by user: %w", err)
	}
	return nil
}

// DeleteByCategoryID removes all posts under a category. Used for cascade deletes.
func (r *PostRepository) DeleteByCategoryID(ctx context.Context, categoryID string) error {
	const query = `DELETE FROM posts WHERE category_id = $1`
	if _, err := r.db.ExecContext(ctx, query, categoryID); err != nil {
		return fmt.Errorf("delete posts by category: %w", err)
	}
	return nil
}

// SummariesByUserIDs returns trimmed posts keyed for user list preloading.
func (r *PostRepository) SummariesByUserIDs(ctx context.Context, userIDs []string) ([]models.PostSummary, error) {
	return r.summaries(ctx, "user_id", userIDs)
}

// SummariesByCategoryIDs returns trimmed posts keyed for category list preloading.
func (r *PostRepository) SummariesByCategoryIDs(ctx context.Context, categoryIDs []string) ([]models.PostSummary, error) {
	return r.summaries(ctx, "category_id", categoryIDs)
}

func (r *PostRepository) summaries(ctx context.Context, ownerColumn string, ids []string) ([]models.PostSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT id, title, description, thumbnail, status, %s AS owner_id FROM posts WHERE %s IN (?)`, ownerColumn, ownerColumn), ids)
	if err != nil {
		return nil, fmt.Errorf("post summaries: %w", err)
	}
	var summaries []models.PostSummary
	if err := r.db.SelectContext(ctx, &summaries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("post summaries: %w", err)
	}
	return summaries, nil
}
