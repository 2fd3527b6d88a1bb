package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/syncboard/go/internal/models"
)

// EventType is the type tag of a real-time frame
type EventType string

const (
	EventJoinRoom    EventType = "join:room"
	EventLeaveRoom   EventType = "leave:room"
	EventRoomUsers   EventType = "room:users"
	EventDrawAction  EventType = "draw:action"
	EventDrawUndo    EventType = "draw:undo"
	EventCursorMove  EventType = "cursor:move"
	EventCanvasSaved EventType = "canvas:saved"
	EventError       EventType = "error"
)

// Frame is the envelope of every message on the real-time channel
type Frame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinRoomPayload is sent by a client to enter a room
type JoinRoomPayload struct {
	RoomID string         `json:"roomId"`
	User   models.UserRef `json:"user"`
}

// LeaveRoomPayload is sent by a client leaving a room without disconnecting
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// DrawPayload carries a draw or undo action from a client
type DrawPayload struct {
	RoomID string            `json:"roomId"`
	Action models.DrawAction `json:"action"`
}

// CursorMovePayload is a client's cursor update
type CursorMovePayload struct {
	RoomID   string          `json:"roomId"`
	UserID   string          `json:"userId"`
	Position models.Position `json:"position"`
}

// CursorPayload is the cursor update fanned out to peers
type CursorPayload struct {
	UserID   string          `json:"userId"`
	Position models.Position `json:"position"`
}

// CanvasSavedPayload announces a completed canvas save
type CanvasSavedPayload struct {
	RoomID       string    `json:"roomId"`
	SavedActions int       `json:"savedActions"`
	Truncated    bool      `json:"truncated"`
	SavedAt      time.Time `json:"savedAt"`
}

// ErrorPayload reports a rejected frame
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeFrame marshals payload into a frame of the given type
func EncodeFrame(eventType EventType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	frame, err := json.Marshal(Frame{Type: eventType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", eventType, err)
	}
	return frame, nil
}

// DecodeFrame parses a raw frame
func DecodeFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Type == "" {
		return Frame{}, fmt.Errorf("decode frame: missing type")
	}
	return frame, nil
}

// DecodePayload parses the frame data into v
func (f Frame) DecodePayload(v interface{}) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s: missing data", f.Type)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%s: invalid data: %w", f.Type, err)
	}
	return nil
}
