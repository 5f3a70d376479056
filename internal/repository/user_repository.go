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

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, avatar, refresh_token, status, created_at, updated_at`

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByEmailAndRefreshToken returns the user only when the stored refresh
// token equals the submitted one. Used for the refresh cross-check.
func (r *UserRepository) FindByEmailAndRefreshToken(ctx context.Context, email, refreshToken string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND refresh_token = $2 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email, refreshToken); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email and refresh token: %w", err)
	}
	return &user, nil
}

// UpdateRefreshToken unconditionally overwrites the stored refresh token.
// Used on login, where the old token is invalidated regardless of its value.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, email, refreshToken string) error {
	const query = `UPDATE users SET refresh_token = $2, updated_at = $3 WHERE email = $1`
	if _, err := r.db.ExecContext(ctx, query, email, refreshToken, time.Now().UTC()); err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	return nil
}

// RotateRefreshToken swaps the stored refresh token only when its current
// value still equals the one just validated. Returns false when a concurrent
// refresh already rotated it, which keeps rotation race-free.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, email, oldToken, newToken string) (bool, error) {
	const query = `UPDATE users SET refresh_token = $3, updated_at = $4 WHERE email = $1 AND refresh_token = $2`
	res, err := r.db.ExecContext(ctx, query, email, oldToken, newToken, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return affected == 1, nil
}

// List returns users matching the filter with the total count. The search
// keyword matches email, first name or last name.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
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

	listQuery := fmt.Sprintf(`SELECT %s FROM users
		WHERE email LIKE $1 OR first_name LIKE $1 OR last_name LIKE $1
		ORDER BY created_at DESC LIMIT %d OFFSET %d`, userColumns, perPage, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, keyword); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM users WHERE email LIKE $1 OR first_name LIKE $1 OR last_name LIKE $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, keyword); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user and returns the stored record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, first_name, last_name, avatar, refresh_token, status, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :avatar, :refresh_token, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable profile fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET first_name = :first_name, last_name = :last_name, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateAvatar stores the relative path of the user's uploaded avatar.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	const query = `UPDATE users SET avatar = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, avatar, time.Now().UTC()); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

// Delete removes a user row.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// DeleteMany removes multiple user rows.
func (r *UserRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}
