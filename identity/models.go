package identity

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the domain representation of an account. Identity fields are
// immutable after signup and accounts are never deleted.
// It carries no JSON annotations so it can be reused by different
// presentation layers.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Redacted returns a copy of the user safe to hand to callers.
func (u User) Redacted() User {
	u.PasswordHash = ""
	return u
}

// RegisterRequest contains signup data supplied by callers.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
