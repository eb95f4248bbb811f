package domain

import "time"

// UserStatus is the account state of a User. Accounts are never deleted,
// only locked.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusLocked UserStatus = "locked"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusLocked
}

// User models an account that can authenticate against the service.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Roles        []string   `json:"roles"`
	Status       UserStatus `json:"status"`
	// Version is bumped by every password mutation and guards concurrent writers.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u.Status == "" || u.Status == UserStatusActive
}
