package notification

import "errors"

var (
	ErrNotFound     = errors.New("notification not found")
	ErrNotRecipient = errors.New("user is not a recipient of the notification")
)
