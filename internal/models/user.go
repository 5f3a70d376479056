package models

import "time"

// User represents an application user stored in the users table. The
// password hash and the current refresh token never serialize to JSON.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Avatar       *string   `db:"avatar" json:"avatar,omitempty"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	Status       int       `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Posts []PostSummary `db:"-" json:"posts,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search       string
	Page         int
	ItemsPerPage int
}
