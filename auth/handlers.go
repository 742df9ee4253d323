package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/session"
)

var validate = validator.New()

// Handlers wraps the AuthService to provide HTTP handlers.
type Handlers struct {
	service      *AuthService
	cookieSecure bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *AuthService, cookieSecure bool) *Handlers {
	return &Handlers{service: service, cookieSecure: cookieSecure}
}

// HandleRegister godoc
// @Summary Register a new user
// @Description Creates a user account and logs it in; the session cookie is set before the response body is written.
// @Tags auth
// @Accept json
// @Produce json
// @Param registerBody body auth.RegisterRequest true "User registration details"
// @Success 201 {object} auth.UserResponse "User created and logged in"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 403 {object} apperror.ErrorResponse "Already logged in"
// @Failure 409 {object} apperror.ErrorResponse "Username or email already exists"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/user [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := validate.Struct(req); err != nil {
			WriteError(w, r, apperror.NewValidationError("username, email, and password are required", err))
			return
		}

		user, sess, err := h.service.Register(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		// The session row is durable at this point; only now may the
		// cookie and body describe the new identity.
		session.SetCookie(w, sess.Token, sess.ExpiresAt, h.cookieSecure)
		writeJSON(w, http.StatusCreated, UserResponse{Message: "Registration successful", User: user})
	}
}

// HandleLogin godoc
// @Summary Log in
// @Description Verifies email and password and opens a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "User login credentials"
// @Success 200 {object} auth.UserResponse "Login successful"
// @Failure 400 {object} apperror.ErrorResponse "Incorrect password"
// @Failure 403 {object} apperror.ErrorResponse "Already logged in"
// @Failure 404 {object} apperror.ErrorResponse "No user found with this email address"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/user/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := validate.Struct(req); err != nil {
			WriteError(w, r, apperror.NewValidationError("email and password are required", err))
			return
		}

		user, sess, err := h.service.Login(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		session.SetCookie(w, sess.Token, sess.ExpiresAt, h.cookieSecure)
		writeJSON(w, http.StatusOK, UserResponse{Message: "Login successful", User: user})
	}
}

// HandleLogout godoc
// @Summary Log out
// @Description Destroys the current session and clears the cookie.
// @Tags auth
// @Produce json
// @Success 204 "Logged out"
// @Failure 401 {object} apperror.ErrorResponse "Not logged in"
// @Router /api/user/logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := session.TokenFromRequest(r)
		if err := h.service.Logout(r.Context(), token); err != nil {
			WriteError(w, r, err)
			return
		}

		session.ClearCookie(w, h.cookieSecure)
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJSON serializes data to JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"message":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError writes any error as a standardized JSON error response.
// Non-AppError values are wrapped as internal errors first.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred: "+err.Error(), err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
