package rooms

import "github.com/mcdev12/syncboard/go/internal/models"

const (
	// MaxStoredActions bounds the persisted Action Log of a room
	MaxStoredActions = 1000
	// DefaultListLimit is the number of rooms ListRooms returns
	DefaultListLimit = 20
)

// JoinUserRequest creates a participant
type JoinUserRequest struct {
	Name string `json:"name"`
}

type JoinUserResponse struct {
	User *models.User `json:"user"`
}

// CreateRoomRequest creates a room owned by UserID
type CreateRoomRequest struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type GetRoomRequest struct {
	Slug string `json:"slug"`
}

// RoomResponse wraps a single room
type RoomResponse struct {
	Room *models.Room `json:"room"`
}

type ListRoomsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListRoomsResponse struct {
	Rooms []models.Room `json:"rooms"`
}

// SaveCanvasRequest replaces the persisted log of a room
type SaveCanvasRequest struct {
	Slug    string              `json:"slug,omitempty"`
	Actions []models.DrawAction `json:"actions"`
}

// SaveCanvasResponse reports how much of the log was kept
type SaveCanvasResponse struct {
	Room         *models.Room `json:"room"`
	SavedActions int          `json:"savedActions"`
	Truncated    bool         `json:"truncated"`
}
