package posts

import (
	"context"
	"errors"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/feed"
)

// Publisher receives post activity events. Satisfied by *feed.Broadcaster;
// a nil-safe no-op keeps the service usable without a feed.
type Publisher interface {
	Publish(event feed.Event)
}

// PostService provides post CRUD with ownership enforcement and the home feed.
type PostService struct {
	repo      Repository
	publisher Publisher
}

// NewPostService creates a new PostService. publisher may be nil.
func NewPostService(repo Repository, publisher Publisher) *PostService {
	return &PostService{repo: repo, publisher: publisher}
}

func (s *PostService) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(feed.NewEvent(eventType, payload))
	}
}

// ListPosts returns every post with its owner.
func (s *PostService) ListPosts(ctx context.Context) ([]PostWithOwner, error) {
	out, err := s.repo.ListWithOwners(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list posts", err)
	}
	return out, nil
}

// GetPost returns one post with its owner.
func (s *PostService) GetPost(ctx context.Context, id int) (*PostWithOwner, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, apperror.NewNotFoundError("No post found with this ID", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get post", err)
	}
	return post, nil
}

// Home builds the home feed: posts most recently updated first, each
// annotated with whether the current session user wrote it. currentUserID
// is 0 for anonymous visitors, which matches no owner.
func (s *PostService) Home(ctx context.Context, currentUserID int) ([]HomePost, error) {
	postsWithOwners, err := s.repo.ListWithOwners(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to load home feed", err)
	}

	out := make([]HomePost, 0, len(postsWithOwners))
	for _, p := range postsWithOwners {
		out = append(out, HomePost{
			ID:                  p.ID,
			Title:               p.Title,
			Content:             p.Content,
			CreatedAt:           p.CreatedAt,
			User:                p.User,
			PostedByCurrentUser: p.User.ID == currentUserID,
		})
	}
	return out, nil
}

// CreatePost creates a post owned by the acting user.
func (s *PostService) CreatePost(ctx context.Context, userID int, req CreatePostRequest) (*Post, error) {
	post, err := s.repo.Create(ctx, userID, req.Title, req.Content)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create post", err)
	}
	s.publish(feed.EventPostCreated, post)
	return post, nil
}

// UpdatePost updates a post after checking the acting user owns it.
// A missing post is 404; someone else's post is 403.
func (s *PostService) UpdatePost(ctx context.Context, postID, actorID int, req UpdatePostRequest) (*Post, error) {
	if err := s.checkOwnership(ctx, postID, actorID); err != nil {
		return nil, err
	}

	post, err := s.repo.Update(ctx, postID, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, apperror.NewNotFoundError("No post found with this ID", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update post", err)
	}
	s.publish(feed.EventPostUpdated, post)
	return post, nil
}

// DeletePost deletes a post after checking ownership.
func (s *PostService) DeletePost(ctx context.Context, postID, actorID int) error {
	if err := s.checkOwnership(ctx, postID, actorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return apperror.NewNotFoundError("No post found with this ID", nil)
		}
		return apperror.NewDatabaseError("failed to delete post", err)
	}
	s.publish(feed.EventPostDeleted, map[string]int{"id": postID})
	return nil
}

func (s *PostService) checkOwnership(ctx context.Context, postID, actorID int) error {
	ownerID, err := s.repo.GetOwnerID(ctx, postID)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return apperror.NewNotFoundError("No post found with this ID", nil)
		}
		return apperror.NewDatabaseError("failed to look up post owner", err)
	}
	if ownerID != actorID {
		return apperror.NewUnauthorizedError("You are not allowed to modify this post", nil)
	}
	return nil
}
