package posts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/user/techblog-go/auth"
	"github.com/user/techblog-go/session"
)

func newTestPostHandlers() (*PostHandlers, *fakePostRepo) {
	repo := newFakePostRepo()
	return NewPostHandlers(NewPostService(repo, nil)), repo
}

func asUser(r *http.Request, userID int, username string) *http.Request {
	sess := &session.Session{Token: "t", UserID: userID, Username: username}
	return r.WithContext(auth.NewContextWithSession(r.Context(), sess))
}

func TestHandleHome(t *testing.T) {
	h, repo := newTestPostHandlers()
	repo.addPost(1, "alice", "alice's post", "a")
	repo.addPost(2, "bob", "bob's post", "b")

	// Anonymous visitor.
	w := httptest.NewRecorder()
	h.HandleHome()(w, httptest.NewRequest(http.MethodGet, "/api/home", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var resp struct {
		Posts    []map[string]interface{} `json:"posts"`
		LoggedIn bool                     `json:"loggedIn"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.LoggedIn {
		t.Fatal("anonymous visitor should see loggedIn=false")
	}
	for _, p := range resp.Posts {
		if p["postedByCurrentUser"] != false {
			t.Fatalf("anonymous visitor owns nothing: %v", p)
		}
	}

	// Logged in as alice.
	w = httptest.NewRecorder()
	h.HandleHome()(w, asUser(httptest.NewRequest(http.MethodGet, "/api/home", nil), 1, "alice"))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if !resp.LoggedIn {
		t.Fatal("alice should see loggedIn=true")
	}
	byUser := map[string]bool{}
	for _, p := range resp.Posts {
		owner := p["user"].(map[string]interface{})
		byUser[owner["username"].(string)] = p["postedByCurrentUser"].(bool)
	}
	if !byUser["alice"] || byUser["bob"] {
		t.Fatalf("unexpected ownership annotation: %v", byUser)
	}
}

func TestHandleCreatePost(t *testing.T) {
	h, repo := newTestPostHandlers()

	body := `{"title":"hello","content":"first post"}`

	// Anonymous callers are rejected before the service runs.
	w := httptest.NewRecorder()
	h.HandleCreatePost()(w, httptest.NewRequest(http.MethodPost, "/api/post", strings.NewReader(body)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: want 401, got %d", w.Code)
	}
	if len(repo.posts) != 0 {
		t.Fatal("no post should be created for an anonymous caller")
	}

	w = httptest.NewRecorder()
	h.HandleCreatePost()(w, asUser(httptest.NewRequest(http.MethodPost, "/api/post", strings.NewReader(body)), 1, "alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body.String())
	}
	var post map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &post)
	if post["title"] != "hello" || post["user_id"] != float64(1) {
		t.Fatalf("unexpected post: %v", post)
	}
}

func TestHandleCreatePost_Validation(t *testing.T) {
	h, _ := newTestPostHandlers()

	for _, body := range []string{
		`{"title":"","content":"x"}`,
		`{"title":"x","content":""}`,
		`not json`,
	} {
		w := httptest.NewRecorder()
		h.HandleCreatePost()(w, asUser(httptest.NewRequest(http.MethodPost, "/api/post", strings.NewReader(body)), 1, "alice"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: want 400, got %d", body, w.Code)
		}
	}
}

func TestHandleUpdatePost_Forbidden(t *testing.T) {
	h, repo := newTestPostHandlers()
	repo.addPost(1, "alice", "hello", "a")

	router := chi.NewRouter()
	router.Put("/api/post/{id}", h.HandleUpdatePost())

	body := `{"title":"stolen","content":"x"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodPut, "/api/post/1", strings.NewReader(body)), 2, "bob"))

	if w.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", w.Code)
	}
	if repo.posts[1].Title != "hello" {
		t.Fatal("post must be untouched")
	}
}

func TestHandleDeletePost(t *testing.T) {
	h, repo := newTestPostHandlers()
	repo.addPost(1, "alice", "hello", "a")

	router := chi.NewRouter()
	router.Delete("/api/post/{id}", h.HandleDeletePost())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodDelete, "/api/post/1", nil), 1, "alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "Post deleted" {
		t.Fatalf("unexpected message: %q", resp["message"])
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodDelete, "/api/post/1", nil), 1, "alice"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: want 404, got %d", w.Code)
	}
}
