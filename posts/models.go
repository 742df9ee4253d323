// Package posts is responsible for blog posts: CRUD guarded by ownership,
// and the home feed. It follows the same service/handler split as the auth
// and users packages.
package posts

import "time"

// Post represents a blog post owned by exactly one user.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner is the slice of the owning user a post listing exposes.
type Owner struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// PostWithOwner joins a post with its owner for listings.
type PostWithOwner struct {
	Post
	User Owner `json:"user"`
}
