// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen   = 64
	MaxUserNameLen = 64
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUserNameEmpty   = errors.New("user name empty")
	ErrUserNameTooLong = errors.New("user name too long")
)

type UserID string

// Identity is the caller-supplied (id, display name) pair presented at
// registration. The id is not guaranteed unique across connections; the
// registry decides what to do with duplicates.
type Identity struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(id, name string) (Identity, error) {
	if len(id) == 0 {
		return Identity{}, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	if len(name) == 0 {
		return Identity{}, ErrUserNameEmpty
	}
	if len(name) > MaxUserNameLen {
		return Identity{}, ErrUserNameTooLong
	}
	return Identity{ID: UserID(id), Name: name}, nil
}
