package domain

import "errors"

var (
	// ErrBusy means the caller or the callee is already engaged in a call.
	ErrBusy = errors.New("user busy")
	// ErrNotFound means the target identity has no live registered connection.
	ErrNotFound = errors.New("user not found")
	// ErrNotRegistered means the sender never presented an identity.
	ErrNotRegistered = errors.New("sender not registered")
)
