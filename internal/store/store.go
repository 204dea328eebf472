package store

import (
	"database/sql"

	"blog/internal/auth"
)

type Stores struct {
	Users    *UserStore
	Profiles *ProfileStore
	Posts    *PostStore
}

// New wires the repositories over one database. hooks may be nil.
func New(db *sql.DB, tokens *auth.Manager, hooks ImageHooks) *Stores {
	return &Stores{
		Users:    &UserStore{DB: db, Tokens: tokens, Hooks: hooks},
		Profiles: &ProfileStore{DB: db, Hooks: hooks},
		Posts:    &PostStore{DB: db, Hooks: hooks},
	}
}
