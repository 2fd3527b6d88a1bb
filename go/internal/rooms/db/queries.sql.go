package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, name, created_at)
VALUES (?, ?, ?)
RETURNING id, name, created_at
`

type CreateUserParams struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createUser), arg.ID, arg.Name, arg.CreatedAt)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, name, created_at FROM users
WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(getUser), id)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const createRoom = `-- name: CreateRoom :one
INSERT INTO rooms (id, slug, name, created_by_id, canvas_data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, slug, name, created_by_id, canvas_data, created_at, updated_at
`

type CreateRoomParams struct {
	ID          uuid.UUID
	Slug        string
	Name        string
	CreatedByID uuid.UUID
	CanvasData  pqtype.NullRawMessage
	CreatedAt   time.Time
}

func (q *Queries) CreateRoom(ctx context.Context, arg CreateRoomParams) (Room, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createRoom),
		arg.ID,
		arg.Slug,
		arg.Name,
		arg.CreatedByID,
		arg.CanvasData,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	var i Room
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.CreatedByID,
		&i.CanvasData,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getRoomBySlug = `-- name: GetRoomBySlug :one
SELECT r.id, r.slug, r.name, r.created_by_id, r.canvas_data, r.created_at, r.updated_at, u.name
FROM rooms r
JOIN users u ON u.id = r.created_by_id
WHERE r.slug = ?
`

func (q *Queries) GetRoomBySlug(ctx context.Context, slug string) (RoomWithCreator, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(getRoomBySlug), slug)
	var i RoomWithCreator
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.CreatedByID,
		&i.CanvasData,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CreatorName,
	)
	return i, err
}

const listRecentRooms = `-- name: ListRecentRooms :many
SELECT r.id, r.slug, r.name, r.created_by_id, r.canvas_data, r.created_at, r.updated_at, u.name
FROM rooms r
JOIN users u ON u.id = r.created_by_id
ORDER BY r.updated_at DESC, r.created_at DESC
LIMIT ?
`

func (q *Queries) ListRecentRooms(ctx context.Context, limit int32) ([]RoomWithCreator, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(listRecentRooms), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RoomWithCreator
	for rows.Next() {
		var i RoomWithCreator
		if err := rows.Scan(
			&i.ID,
			&i.Slug,
			&i.Name,
			&i.CreatedByID,
			&i.CanvasData,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CreatorName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateRoomCanvas = `-- name: UpdateRoomCanvas :execrows
UPDATE rooms
SET canvas_data = ?, updated_at = ?
WHERE slug = ?
`

type UpdateRoomCanvasParams struct {
	CanvasData pqtype.NullRawMessage
	UpdatedAt  time.Time
	Slug       string
}

func (q *Queries) UpdateRoomCanvas(ctx context.Context, arg UpdateRoomCanvasParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, q.rebind(updateRoomCanvas), arg.CanvasData, arg.UpdatedAt, arg.Slug)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
