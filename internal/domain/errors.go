package domain

import "errors"

// Repository sentinels shared by every storage backend.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
