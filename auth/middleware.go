package auth

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/session"
)

// SessionMiddleware restores the session identified by the request cookie
// into the request context. Requests with no cookie, an unknown token, or an
// expired session proceed as anonymous; an invalid cookie is also cleared so
// the client stops sending it.
func SessionMiddleware(store session.Store, cookieSecure bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := session.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Get(r.Context(), token)
			if err != nil {
				if err != session.ErrNotFound {
					log.Printf("session lookup failed for request %s %s: %v", r.Method, r.URL.Path, err)
				}
				session.ClearCookie(w, cookieSecure)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithSession(r.Context(), sess)))
		})
	}
}

// RequireLoggedIn halts the request with 401 unless the session carries an
// authenticated user.
func RequireLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || !sess.LoggedIn() {
			WriteError(w, r, apperror.NewAuthError("You must be logged in to do that", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLoggedOut halts the request with 403 when a session user exists.
// Used by register and login so an authenticated client cannot switch
// identities without logging out first.
func RequireLoggedOut(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := SessionFromContext(r.Context()); ok && sess.LoggedIn() {
			WriteError(w, r, apperror.NewUnauthorizedError("You are already logged in", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelf guards the legacy path-parameter routes: the {id} path
// parameter must match the session user. Implies RequireLoggedIn.
func RequireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || !sess.LoggedIn() {
			WriteError(w, r, apperror.NewAuthError("You must be logged in to do that", nil))
			return
		}

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid user id", err))
			return
		}
		if id != sess.UserID {
			WriteError(w, r, apperror.NewUnauthorizedError("You are not allowed to modify this user", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
