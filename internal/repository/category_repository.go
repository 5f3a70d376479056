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

// CategoryRepository provides database access for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, description, status, created_at, updated_at`

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1 LIMIT 1`, categoryColumns)
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return &category, nil
}

// List returns categories matching the filter with the total count. The
// search keyword matches name or description.
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.ItemsPerPage
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage
	keyword := "%" + filter.Search + "%"

	listQuery := fmt.Sprintf(`SELECT %s FROM categories
		WHERE name LIKE $1 OR description LIKE $1
		ORDER BY created_at DESC LIMIT %d OFFSET %d`, categoryColumns, perPage, offset)

	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, listQuery, keyword); err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM categories WHERE name LIKE $1 OR description LIKE $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, keyword); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	return categories, total, nil
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now

	const query = `INSERT INTO categories (id, name, description, status, created_at, updated_at)
		VALUES (:id, :name, :description, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update updates mutable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, description = :description, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category row.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// DeleteMany removes multiple category rows.
func (r *CategoryRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM categories WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	return nil
}
