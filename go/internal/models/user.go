package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a participant who joined with a display name
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRef is the trimmed-down user embedded in other payloads
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
