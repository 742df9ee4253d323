// Package auth provides authentication functionality.
// This file defines the request and response payloads for the auth endpoints.
package auth

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30" example:"newuser"`
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=6,max=72" example:"strongpassword123"`
}

// LoginRequest represents the login request payload. Login is by email only.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"strongpassword123"`
}

// UserResponse wraps a user with a human-readable message, the shape every
// identity-changing endpoint replies with.
type UserResponse struct {
	Message string `json:"message" example:"Login successful"`
	User    *User  `json:"user"`
}
