// Package users encapsulates account management: listing and looking up
// users, credential changes, and account deletion.
// This file defines the request and response payloads for those endpoints.
package users

import "time"

// PublicUserResponse is the shape of a user as anyone may see it.
// Email stays private; only the owner sees it through the account endpoints.
type PublicUserResponse struct {
	ID        int       `json:"id" example:"1"`
	Username  string    `json:"username" example:"johndoe"`
	CreatedAt time.Time `json:"created_at" example:"2023-01-15T10:30:00Z"`
}

// UpdatePasswordRequest carries a password change. The old password is
// re-verified even though the caller holds a session.
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// UpdateUsernameRequest carries a username change, verified by the current password.
type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required"`
}

// UpdateEmailRequest carries an email change, verified by the current password.
type UpdateEmailRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DeleteAccountRequest carries the password confirmation for account deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}
