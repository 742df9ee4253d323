package users

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/auth"
	"github.com/user/techblog-go/session"
)

var validate = validator.New()

// AdminSecretHeader is the header the user-listing endpoint checks when an
// admin secret is configured.
const AdminSecretHeader = "X-Admin-Secret"

// TargetIDResolver derives the id of the user an account operation acts on.
// The session-scoped routes resolve it from the session; the legacy
// path-parameter routes resolve it from the {id} path segment. One handler
// body serves both route families.
type TargetIDResolver func(r *http.Request) (int, error)

// SessionTargetID resolves the target from the authenticated session.
func SessionTargetID(r *http.Request) (int, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperror.NewAuthError("You must be logged in to do that", nil)
	}
	return userID, nil
}

// PathTargetID resolves the target from the {id} path parameter. The
// RequireSelf guard has already matched it against the session.
func PathTargetID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, apperror.NewBadRequestError("invalid user id", err)
	}
	return id, nil
}

// UserHandlers provides HTTP handlers for account management.
type UserHandlers struct {
	service      *UserService
	adminSecret  string
	cookieSecure bool
}

// NewUserHandlers creates new UserHandlers. adminSecret may be empty, which
// leaves the listing endpoint open (legacy behavior).
func NewUserHandlers(service *UserService, adminSecret string, cookieSecure bool) *UserHandlers {
	return &UserHandlers{service: service, adminSecret: adminSecret, cookieSecure: cookieSecure}
}

// HandleListUsers godoc
// @Summary List all users
// @Description Lists every user, without password fields. Requires the admin secret header when one is configured.
// @Tags users
// @Produce json
// @Success 200 {array} auth.User
// @Failure 403 {object} apperror.ErrorResponse "Invalid admin secret"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/user [get]
func (h *UserHandlers) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminSecret != "" && r.Header.Get(AdminSecretHeader) != h.adminSecret {
			auth.WriteError(w, r, apperror.NewUnauthorizedError("Invalid admin secret", nil))
			return
		}

		users, err := h.service.ListUsers(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		if users == nil {
			users = []auth.User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// HandleGetUser godoc
// @Summary Get one user
// @Description Returns the public profile of a user: id, username, created_at.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} PublicUserResponse
// @Failure 404 {object} apperror.ErrorResponse "No user found with this ID"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/user/{id} [get]
func (h *UserHandlers) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid user id", err))
			return
		}

		user, err := h.service.GetPublicUser(r.Context(), id)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// HandleUpdatePassword godoc
// @Summary Change password
// @Description Verifies the old password and replaces it with the new one.
// @Tags users
// @Accept json
// @Produce json
// @Param body body UpdatePasswordRequest true "Old and new password"
// @Success 200 {object} auth.UserResponse "Password updated"
// @Failure 400 {object} apperror.ErrorResponse "Old password is incorrect"
// @Failure 401 {object} apperror.ErrorResponse "Not logged in"
// @Router /api/user/update-password [put]
func (h *UserHandlers) HandleUpdatePassword(resolve TargetIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolve(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req UpdatePasswordRequest
		if err := decodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		user, err := h.service.UpdatePassword(r.Context(), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, auth.UserResponse{Message: "Password updated", User: user})
	}
}

// HandleUpdateUsername godoc
// @Summary Change username
// @Description Verifies the current password and sets a new username.
// @Tags users
// @Accept json
// @Produce json
// @Param body body UpdateUsernameRequest true "New username and current password"
// @Success 200 {object} auth.UserResponse "Username updated"
// @Failure 400 {object} apperror.ErrorResponse "Incorrect password"
// @Failure 401 {object} apperror.ErrorResponse "Not logged in"
// @Failure 409 {object} apperror.ErrorResponse "username already exists"
// @Router /api/user/update-username [put]
func (h *UserHandlers) HandleUpdateUsername(resolve TargetIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolve(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req UpdateUsernameRequest
		if err := decodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		user, err := h.service.UpdateUsername(r.Context(), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, auth.UserResponse{Message: "Username updated", User: user})
	}
}

// HandleUpdateEmail godoc
// @Summary Change email
// @Description Verifies the current password and sets a new email address.
// @Tags users
// @Accept json
// @Produce json
// @Param body body UpdateEmailRequest true "New email and current password"
// @Success 200 {object} auth.UserResponse "Email updated"
// @Failure 400 {object} apperror.ErrorResponse "Incorrect password"
// @Failure 401 {object} apperror.ErrorResponse "Not logged in"
// @Failure 409 {object} apperror.ErrorResponse "email already exists"
// @Router /api/user/update-email [put]
func (h *UserHandlers) HandleUpdateEmail(resolve TargetIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolve(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req UpdateEmailRequest
		if err := decodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		user, err := h.service.UpdateEmail(r.Context(), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, auth.UserResponse{Message: "Email updated", User: user})
	}
}

// HandleDeleteAccount godoc
// @Summary Delete account
// @Description Verifies the password, deletes the account and its posts, and destroys the session.
// @Tags users
// @Accept json
// @Produce json
// @Param body body DeleteAccountRequest true "Current password"
// @Success 200 {object} apperror.ErrorResponse "Deleted and logged out"
// @Failure 400 {object} apperror.ErrorResponse "Incorrect password"
// @Failure 401 {object} apperror.ErrorResponse "Not logged in"
// @Router /api/user [delete]
func (h *UserHandlers) HandleDeleteAccount(resolve TargetIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolve(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req DeleteAccountRequest
		if err := decodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		if err := h.service.DeleteAccount(r.Context(), userID, req.Password); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		// All sessions for the user are gone; drop the client's cookie too.
		session.ClearCookie(w, h.cookieSecure)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted and logged out"})
	}
}

func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.NewBadRequestError("invalid request body: "+err.Error(), nil)
	}
	defer r.Body.Close()
	if err := validate.Struct(dst); err != nil {
		return apperror.NewValidationError("missing or invalid fields", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"message":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}
