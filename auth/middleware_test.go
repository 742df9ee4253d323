package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/techblog-go/session"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func requestWithSession(sess *session.Session) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		r = r.WithContext(NewContextWithSession(r.Context(), sess))
	}
	return r
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("error body is not JSON: %v (body %q)", err, body)
	}
	return resp.Message
}

func TestSessionMiddleware_RestoresSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sess, _ := store.Create(context.Background(), 42, "alice")

	var seen *session.Session
	handler := SessionMiddleware(store, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.Token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if seen == nil || seen.UserID != 42 || seen.Username != "alice" {
		t.Fatalf("session not restored: %+v", seen)
	}
}

func TestSessionMiddleware_NoCookieIsAnonymous(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)

	handler := SessionMiddleware(store, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); ok {
			t.Error("anonymous request should not carry a session")
		}
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous request should pass through, got %d", w.Code)
	}
}

func TestSessionMiddleware_InvalidCookieIsCleared(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)

	handler := SessionMiddleware(store, false)(http.HandlerFunc(okHandler))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "stale-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("request with a stale cookie should still pass through, got %d", w.Code)
	}

	cookies := w.Result().Cookies()
	var cleared bool
	for _, c := range cookies {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("stale cookie should be cleared, got cookies %+v", cookies)
	}
}

func TestRequireLoggedIn(t *testing.T) {
	handler := RequireLoggedIn(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithSession(nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request: want 401, got %d", w.Code)
	}
	if msg := errorMessage(t, w.Body.Bytes()); msg != "You must be logged in to do that" {
		t.Fatalf("unexpected message: %q", msg)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithSession(&session.Session{Token: "t", UserID: 1, Username: "alice"}))
	if w.Code != http.StatusOK {
		t.Fatalf("logged-in request: want 200, got %d", w.Code)
	}
}

func TestRequireLoggedOut(t *testing.T) {
	handler := RequireLoggedOut(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithSession(&session.Session{Token: "t", UserID: 1, Username: "alice"}))
	if w.Code != http.StatusForbidden {
		t.Fatalf("logged-in request: want 403, got %d", w.Code)
	}
	if msg := errorMessage(t, w.Body.Bytes()); msg != "You are already logged in" {
		t.Fatalf("unexpected message: %q", msg)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithSession(nil))
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous request: want 200, got %d", w.Code)
	}
}

func TestRequireSelf(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireSelf).Put("/user/{id}", okHandler)

	send := func(path string, sess *session.Session) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, nil)
		if sess != nil {
			req = req.WithContext(NewContextWithSession(req.Context(), sess))
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	current := &session.Session{Token: "t", UserID: 5, Username: "alice"}

	if w := send("/user/5", current); w.Code != http.StatusOK {
		t.Fatalf("own id: want 200, got %d", w.Code)
	}

	w := send("/user/6", current)
	if w.Code != http.StatusForbidden {
		t.Fatalf("other id: want 403, got %d", w.Code)
	}
	if msg := errorMessage(t, w.Body.Bytes()); msg != "You are not allowed to modify this user" {
		t.Fatalf("unexpected message: %q", msg)
	}

	if w := send("/user/5", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: want 401, got %d", w.Code)
	}

	if w := send("/user/abc", current); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: want 400, got %d", w.Code)
	}
}
