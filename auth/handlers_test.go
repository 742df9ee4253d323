package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/techblog-go/session"
)

func newTestHandlers() (*Handlers, *countingSessionStore) {
	svc, _, sessions := newTestService()
	return NewHandlers(svc, false), sessions
}

func TestHandleRegister_SetsCookieAndStripsPassword(t *testing.T) {
	h, sessions := newTestHandlers()

	body := `{"username":"alice","email":"alice@example.com","password":"secret123"}`
	r := httptest.NewRequest(http.MethodPost, "/api/user", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister()(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("registration should set the session cookie")
	}
	if !sessionCookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	// The cookie token must already resolve to a live session.
	if _, err := sessions.Get(r.Context(), sessionCookie.Value); err != nil {
		t.Fatalf("cookie token should resolve to a stored session: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["message"] != "Registration successful" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	user, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no user object: %v", resp)
	}
	if user["username"] != "alice" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, present := user["password"]; present {
		t.Fatal("password must not appear in the response")
	}
}

func TestHandleRegister_InvalidBody(t *testing.T) {
	h, sessions := newTestHandlers()

	cases := []string{
		`not json`,
		`{"username":"al","email":"alice@example.com","password":"secret123"}`,
		`{"username":"alice","email":"not-an-email","password":"secret123"}`,
		`{"username":"alice","email":"alice@example.com","password":"shor"}`,
	}
	for _, body := range cases {
		r := httptest.NewRequest(http.MethodPost, "/api/user", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.HandleRegister()(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: want 400, got %d", body, w.Code)
		}
	}
	if sessions.creates != 0 {
		t.Fatal("invalid input must not create sessions")
	}
}

func TestHandleLogin_StatusCodes(t *testing.T) {
	h, _ := newTestHandlers()

	register := `{"username":"alice","email":"alice@example.com","password":"secret123"}`
	w := httptest.NewRecorder()
	h.HandleRegister()(w, httptest.NewRequest(http.MethodPost, "/api/user", strings.NewReader(register)))
	if w.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", w.Code)
	}

	cases := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"success", `{"email":"alice@example.com","password":"secret123"}`, http.StatusOK, "Login successful"},
		{"unknown email", `{"email":"nobody@example.com","password":"secret123"}`, http.StatusNotFound, "No user found with this email address"},
		{"wrong password", `{"email":"alice@example.com","password":"wrong-password"}`, http.StatusBadRequest, "Incorrect password"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/api/user/login", strings.NewReader(tc.body))
		w := httptest.NewRecorder()
		h.HandleLogin()(w, r)

		if w.Code != tc.status {
			t.Errorf("%s: want %d, got %d: %s", tc.name, tc.status, w.Code, w.Body.String())
			continue
		}
		var resp map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Errorf("%s: response is not JSON: %v", tc.name, err)
			continue
		}
		if resp["message"] != tc.message {
			t.Errorf("%s: want message %q, got %v", tc.name, tc.message, resp["message"])
		}
	}
}

func TestHandleLogout(t *testing.T) {
	h, sessions := newTestHandlers()
	sess, err := sessions.Create(httptest.NewRequest(http.MethodPost, "/", nil).Context(), 1, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/user/logout", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.Token})
	w := httptest.NewRecorder()
	h.HandleLogout()(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", w.Code)
	}
	if _, err := sessions.Get(r.Context(), sess.Token); err != session.ErrNotFound {
		t.Fatalf("session should be destroyed, got %v", err)
	}

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout should clear the session cookie")
	}
}

func TestSessionExpiryEndToEnd(t *testing.T) {
	users := newFakeUserStore()
	sessions := &countingSessionStore{Store: session.NewMemoryStore(-time.Minute)}
	h := NewHandlers(NewAuthService(users, sessions), false)

	body := `{"username":"alice","email":"alice@example.com","password":"secret123"}`
	w := httptest.NewRecorder()
	h.HandleRegister()(w, httptest.NewRequest(http.MethodPost, "/api/user", strings.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", w.Code)
	}

	token := ""
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			token = c.Value
		}
	}

	// The store's TTL already expired the session; the guard treats the
	// request as anonymous.
	guarded := SessionMiddleware(sessions, false)(RequireLoggedIn(http.HandlerFunc(okHandler)))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired session should yield 401, got %d", w.Code)
	}
}
