package auth

import "time"

// User represents a user in the system. The password column always holds a
// bcrypt hash, and the json tag keeps it out of every serialized response.
type User struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
