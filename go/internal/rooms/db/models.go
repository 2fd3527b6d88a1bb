package db

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Name      string
	CreatedAt Timestamp
}

type Room struct {
	ID          uuid.UUID
	Slug        string
	Name        string
	CreatedByID uuid.UUID
	CanvasData  []byte
	CreatedAt   Timestamp
	UpdatedAt   Timestamp
}

// RoomWithCreator is a room joined with the name of its creator
type RoomWithCreator struct {
	Room
	CreatorName string
}

// Timestamp scans the time representations of both supported drivers. lib/pq returns
// time.Time; SQLite may hand back text or unix seconds depending on how the value was
// written.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("cannot scan %T into Timestamp", src)
}

func (t *Timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as timestamp", s)
}

func (t Timestamp) Value() (driver.Value, error) {
	return t.Time, nil
}
