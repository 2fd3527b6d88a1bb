package rooms

import "errors"

var (
	// ErrRoomNotFound is returned when no room has the requested slug
	ErrRoomNotFound = errors.New("room not found")
	// ErrUserNotFound is returned when a user id does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRequest wraps every validation failure
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnavailable is returned while storage is failing and writes are short-circuited
	ErrUnavailable = errors.New("storage unavailable")
)
