package rooms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/mcdev12/syncboard/go/internal/rooms/db"
	"github.com/mcdev12/syncboard/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// Repository implements room and user data access
type Repository struct {
	queries  *db.Queries
	database *sql.DB
}

// NewRepository creates a new rooms repository
func NewRepository(queries *db.Queries, database *sql.DB) *Repository {
	return &Repository{
		queries:  queries,
		database: database,
	}
}

// CreateUser inserts a user
func (r *Repository) CreateUser(ctx context.Context, name string, now time.Time) (*models.User, error) {
	user, err := r.queries.CreateUser(ctx, db.CreateUserParams{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return dbUserToModel(user), nil
}

// CreateRoom inserts a room with an empty canvas and returns it with its creator
func (r *Repository) CreateRoom(ctx context.Context, name, slug string, creator *models.User, now time.Time) (*models.Room, error) {
	canvas, err := encodeCanvas(models.CanvasData{Actions: []models.DrawAction{}})
	if err != nil {
		return nil, err
	}

	room, err := r.queries.CreateRoom(ctx, db.CreateRoomParams{
		ID:          uuid.New(),
		Slug:        slug,
		Name:        name,
		CreatedByID: creator.ID,
		CanvasData:  canvas,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return dbRoomToModel(db.RoomWithCreator{Room: room, CreatorName: creator.Name})
}

// GetRoomBySlug retrieves a room and its creator
func (r *Repository) GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	room, err := r.queries.GetRoomBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, slug)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return dbRoomToModel(room)
}

// ListRecentRooms returns the most recently updated rooms
func (r *Repository) ListRecentRooms(ctx context.Context, limit int) ([]models.Room, error) {
	rows, err := r.queries.ListRecentRooms(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	out := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		room, err := dbRoomToModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *room)
	}
	return out, nil
}

// SaveCanvas replaces the room's canvas and returns the updated room. The update and
// the read back share one transaction.
func (r *Repository) SaveCanvas(ctx context.Context, slug string, canvas models.CanvasData, now time.Time) (*models.Room, error) {
	data, err := encodeCanvas(canvas)
	if err != nil {
		return nil, err
	}

	var saved *models.Room
	err = sqlutil.Run(ctx, r.database,
		func(tx *sql.Tx) *db.Queries { return r.queries.WithTx(tx) },
		func(q *db.Queries) error {
			n, err := q.UpdateRoomCanvas(ctx, db.UpdateRoomCanvasParams{
				CanvasData: data,
				UpdatedAt:  now,
				Slug:       slug,
			})
			if err != nil {
				return fmt.Errorf("failed to update canvas: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrRoomNotFound, slug)
			}

			row, err := q.GetRoomBySlug(ctx, slug)
			if err != nil {
				return fmt.Errorf("failed to read saved room: %w", err)
			}
			saved, err = dbRoomToModel(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func encodeCanvas(canvas models.CanvasData) (pqtype.NullRawMessage, error) {
	if canvas.Actions == nil {
		canvas.Actions = []models.DrawAction{}
	}
	raw, err := json.Marshal(canvas)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to encode canvas: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// dbUserToModel converts a database user to domain model
func dbUserToModel(u db.User) *models.User {
	return &models.User{
		ID:        u.ID,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Time,
	}
}

// dbRoomToModel converts a database room to domain model
func dbRoomToModel(r db.RoomWithCreator) (*models.Room, error) {
	room := &models.Room{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		CreatedByID: r.CreatedByID,
		CreatedBy:   models.UserRef{ID: r.CreatedByID.String(), Name: r.CreatorName},
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
	if len(r.CanvasData) > 0 {
		var canvas models.CanvasData
		if err := json.Unmarshal(r.CanvasData, &canvas); err != nil {
			return nil, fmt.Errorf("failed to decode canvas of room %s: %w", r.Slug, err)
		}
		room.CanvasData = &canvas
	}
	return room, nil
}
