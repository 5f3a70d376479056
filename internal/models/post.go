package models

import "time"

// Post is a blog entry belonging to a user and a category.
type Post struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Thumbnail   string    `db:"thumbnail" json:"thumbnail"`
	Status      int       `db:"status" json:"status"`
	UserID      string    `db:"user_id" json:"-"`
	CategoryID  string    `db:"category_id" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PostSummary is the trimmed post shape embedded in user and category
// listings.
type PostSummary struct {
	ID          string `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Thumbnail   string `db:"thumbnail" json:"thumbnail"`
	Status      int    `db:"status" json:"status"`
	OwnerID     string `db:"owner_id" json:"-"`
}

// PostAuthor is the trimmed user embedded in post listings.
type PostAuthor struct {
	ID        string  `db:"user_id" json:"id"`
	Email     string  `db:"user_email" json:"email"`
	Avatar    *string `db:"user_avatar" json:"avatar,omitempty"`
	FirstName string  `db:"user_first_name" json:"first_name"`
	LastName  string  `db:"user_last_name" json:"last_name"`
}

// PostDetail is a post joined with its author and category.
type PostDetail struct {
	Post
	User     PostAuthor  `json:"user"`
	Category CategoryRef `json:"category"`
}

// PostFilter captures filtering criteria for listing posts.
type PostFilter struct {
	Search       string
	CategoryID   string
	UserID       string
	Page         int
	ItemsPerPage int
}
