package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// Profile is the one-to-one extension of a User.
type Profile struct {
	ID          int64
	UserID      int64
	PhoneNumber *string // nil when never set or explicitly cleared
	Image       string // path relative to the media root, "" when unset
	User        *User
}

type Post struct {
	ID             int64
	Title          string
	Description    string
	Image          string // path relative to the media root, "" when unset
	CreatedAt      time.Time
	AuthorID       int64
	AuthorUsername string
}
