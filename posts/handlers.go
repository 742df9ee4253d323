package posts

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/auth"
)

var validate = validator.New()

// PostHandlers handles HTTP requests for posts and the home feed.
type PostHandlers struct {
	service *PostService
}

// NewPostHandlers creates a new PostHandlers.
func NewPostHandlers(service *PostService) *PostHandlers {
	return &PostHandlers{service: service}
}

// RegisterRoutes registers the post CRUD routes on the given router.
// Reads are public; mutations sit behind the logged-in guard.
func (h *PostHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListPosts())
	r.Get("/{id}", h.HandleGetPost())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLoggedIn)
		r.Post("/", h.HandleCreatePost())
		r.Put("/{id}", h.HandleUpdatePost())
		r.Delete("/{id}", h.HandleDeletePost())
	})
}

// HandleHome godoc
// @Summary Home feed
// @Description All posts, most recently updated first, annotated with postedByCurrentUser.
// @Tags posts
// @Produce json
// @Success 200 {object} HomeResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/home [get]
func (h *PostHandlers) HandleHome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := auth.SessionFromContext(r.Context())
		currentUserID := 0
		if sess.LoggedIn() {
			currentUserID = sess.UserID
		}

		homePosts, err := h.service.Home(r.Context(), currentUserID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, HomeResponse{Posts: homePosts, LoggedIn: sess.LoggedIn()})
	}
}

// HandleListPosts godoc
// @Summary List posts
// @Tags posts
// @Produce json
// @Success 200 {array} PostWithOwner
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/post [get]
func (h *PostHandlers) HandleListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := h.service.ListPosts(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		if out == nil {
			out = []PostWithOwner{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleGetPost godoc
// @Summary Get one post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostWithOwner
// @Failure 404 {object} apperror.ErrorResponse "No post found with this ID"
// @Router /api/post/{id} [get]
func (h *PostHandlers) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := postID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		post, err := h.service.GetPost(r.Context(), id)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

// HandleCreatePost godoc
// @Summary Create a post
// @Description Creates a post owned by the session user.
// @Tags posts
// @Accept json
// @Produce json
// @Param body body CreatePostRequest true "Title and content"
// @Success 201 {object} Post
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 401 {object} apperror.ErrorResponse "Not logged in"
// @Router /api/post [post]
func (h *PostHandlers) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("You must be logged in to do that", nil))
			return
		}

		var req CreatePostRequest
		if err := decodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		post, err := h.service.CreatePost(r.Context(), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, post)
	}
}

// HandleUpdatePost godoc
// @Summary Update a post
// @Description Updates a post; only the owner may do this.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param body body UpdatePostRequest true "Title and content"
// @Success 200 {object} Post
// @Failure 403 {object} apperror.ErrorResponse "Not the owner"
// @Failure 404 {object} apperror.ErrorResponse "No post found with this ID"
// @Router /api/post/{id} [put]
func (h *PostHandlers) HandleUpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("You must be logged in to do that", nil))
			return
		}

		id, err := postID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req UpdatePostRequest
		if err := decodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		post, err := h.service.UpdatePost(r.Context(), id, userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

// HandleDeletePost godoc
// @Summary Delete a post
// @Description Deletes a post; only the owner may do this.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} apperror.ErrorResponse "Not the owner"
// @Failure 404 {object} apperror.ErrorResponse "No post found with this ID"
// @Router /api/post/{id} [delete]
func (h *PostHandlers) HandleDeletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("You must be logged in to do that", nil))
			return
		}

		id, err := postID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		if err := h.service.DeletePost(r.Context(), id, userID); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func postID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, apperror.NewBadRequestError("invalid post id", err)
	}
	return id, nil
}

func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.NewBadRequestError("invalid request body: "+err.Error(), nil)
	}
	defer r.Body.Close()
	if err := validate.Struct(dst); err != nil {
		return apperror.NewValidationError("title and content are required", err)
	}
	return nil
}
