package chat

import "errors"

var (
	ErrRoomNotFound = errors.New("chat room not found")
	ErrNotMember    = errors.New("user is not a member of this chat room")
)
