package model

import (
	"time"
)

// User is the persisted account record. ID and CreatedAt are assigned by the
// store and never change afterwards.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	CreatedAt      time.Time `json:"created_at"`
}

// PublicUser is the subset of a record safe to return to clients.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserPatch carries a partial profile update. Nil fields are left untouched by
// the store; the repository builds its statement from present fields only.
type UserPatch struct {
	Username       *string
	Email          *string
	HashedPassword *string
}

func (p UserPatch) IsZero() bool {
	return p.Username == nil && p.Email == nil && p.HashedPassword == nil
}
