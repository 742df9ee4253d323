package posts

import "time"

// CreatePostRequest is the payload for creating a post.
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// UpdatePostRequest is the payload for updating a post. Both fields are
// required; the post editor always submits both.
type UpdatePostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// HomePost is a post as the home feed renders it. The update timestamp is
// presentation-irrelevant there and deliberately absent; ordering already
// encodes it.
type HomePost struct {
	ID                  int       `json:"id"`
	Title               string    `json:"title"`
	Content             string    `json:"content"`
	CreatedAt           time.Time `json:"createdAt"`
	User                Owner     `json:"user"`
	PostedByCurrentUser bool      `json:"postedByCurrentUser"`
}

// HomeResponse is the body of the home feed endpoint.
type HomeResponse struct {
	Posts    []HomePost `json:"posts"`
	LoggedIn bool       `json:"loggedIn"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message" example:"Post deleted"`
}
