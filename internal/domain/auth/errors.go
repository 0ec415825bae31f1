package auth

import "errors"

var (
	ErrPhoneAlreadyExists  = errors.New("phone number already registered")
	ErrInvalidCredentials  = errors.New("invalid phone number or password")
	ErrInvalidPhoneNumber  = errors.New("invalid phone number format")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
)
