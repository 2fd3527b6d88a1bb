package rooms

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/mcdev12/syncboard/go/internal/rooms/db"
)

func newSQLiteRepository(t *testing.T) *Repository {
	t.Helper()
	database, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(context.Background(), database, db.SQLite))
	return NewRepository(db.New(database, db.SQLite), database)
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRepositoryRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	user, err := repo.CreateUser(ctx, "Ada", baseTime)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	fetched, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, fetched.ID)
	assert.True(t, fetched.CreatedAt.Equal(baseTime))

	room, err := repo.CreateRoom(ctx, "Sketch", "sketch-abc", user, baseTime)
	require.NoError(t, err)
	assert.Equal(t, "sketch-abc", room.Slug)
	assert.Equal(t, models.UserRef{ID: user.ID.String(), Name: "Ada"}, room.CreatedBy)
	require.NotNil(t, room.CanvasData)
	assert.Empty(t, room.CanvasData.Actions)

	actions := []models.DrawAction{
		{ID: "a-1", Type: models.ActionTypePath, Tool: models.ToolPen, Color: "#000000", Width: 3,
			Points: []models.Point{{1, 2}, {3, 4}}, UserID: user.ID.String(), Timestamp: 1},
		{ID: "a-2", Type: models.ActionTypeClear, UserID: user.ID.String(), Timestamp: 2},
	}
	saved, err := repo.SaveCanvas(ctx, "sketch-abc", models.CanvasData{Actions: actions}, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, actions, saved.Actions())
	assert.True(t, saved.UpdatedAt.Equal(baseTime.Add(time.Minute)))

	got, err := repo.GetRoomBySlug(ctx, "sketch-abc")
	require.NoError(t, err)
	assert.Equal(t, actions, got.Actions())
	assert.Equal(t, "Ada", got.CreatedBy.Name)
}

func TestRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	_, err := repo.GetRoomBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = repo.SaveCanvas(ctx, "missing", models.CanvasData{}, baseTime)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = repo.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepositoryListsMostRecentlyUpdatedFirst(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	user, err := repo.CreateUser(ctx, "Ada", baseTime)
	require.NoError(t, err)
	for i, slug := range []string{"one", "two", "three"} {
		_, err := repo.CreateRoom(ctx, slug, slug, user, baseTime.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	_, err = repo.SaveCanvas(ctx, "one", models.CanvasData{}, baseTime.Add(time.Hour))
	require.NoError(t, err)

	rooms, err := repo.ListRecentRooms(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "one", rooms[0].Slug)
	assert.Equal(t, "three", rooms[1].Slug)
}
