package models

import "time"

// Category groups posts.
type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Status      int       `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Posts []PostSummary `db:"-" json:"posts,omitempty"`
}

// CategoryFilter captures filtering criteria for listing categories.
type CategoryFilter struct {
	Search       string
	Page         int
	ItemsPerPage int
}

// CategoryRef is the trimmed category embedded in post listings.
type CategoryRef struct {
	ID          string `db:"category_id" json:"id"`
	Name        string `db:"category_name" json:"name"`
	Description string `db:"category_description" json:"description"`
}
