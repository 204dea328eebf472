package auth

import (
	"errors"

	"blog/internal/models"
)

var ErrForbidden = errors.New("you do not have permission to perform this action")

type Action int

const (
	Read Action = iota
	Update
	Delete
)

func (a Action) Safe() bool { return a == Read }

// Authorize is the ownership guard: reads are open to everyone, writes only
// to the owner. A nil caller is anonymous.
func Authorize(caller *models.User, ownerID int64, action Action) error {
	if action.Safe() {
		return nil
	}
	if caller == nil {
		return ErrUnauthenticated
	}
	if caller.ID != ownerID {
		return ErrForbidden
	}
	return nil
}
