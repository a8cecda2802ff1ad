package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound = errors.New("session not found")
	ErrCapacity = errors.New("session store is full")
	ErrEmptyID  = errors.New("empty session id")
)
