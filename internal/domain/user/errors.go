package user

import "errors"

var (
	ErrNotFound    = errors.New("user not found")
	ErrPhoneExists = errors.New("phone number already registered")
)
