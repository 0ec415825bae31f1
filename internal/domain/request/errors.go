package request

import "errors"

var (
	ErrNotFound     = errors.New("purchase request not found")
	ErrTypeNotFound = errors.New("purchase request type not found")
	ErrNotOwner     = errors.New("purchase request belongs to another user")
	ErrInactive     = errors.New("purchase request is no longer active")
)
