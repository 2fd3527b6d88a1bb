package models

import (
	"time"

	"github.com/google/uuid"
)

// Room represents an isolated collaboration session and its persisted canvas
type Room struct {
	ID          uuid.UUID   `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	CreatedByID uuid.UUID   `json:"createdById"`
	CreatedBy   UserRef     `json:"createdBy"`
	CanvasData  *CanvasData `json:"canvasData"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CanvasData is the persisted Action Log snapshot of a room
type CanvasData struct {
	Actions []DrawAction `json:"actions"`
}

// Actions returns the snapshot actions, tolerating rooms that were never saved
func (r *Room) Actions() []DrawAction {
	if r == nil || r.CanvasData == nil {
		return nil
	}
	return r.CanvasData.Actions
}
