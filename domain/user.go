package domain

import "time"

// User is an account in the directory. Created once, immutable thereafter.
// Nickname uniqueness is enforced by the user repository.
type User struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}
