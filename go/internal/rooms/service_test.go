package rooms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectClient(t *testing.T) *RoomServiceClient {
	t.Helper()
	app, _, _ := newTestApp(t)
	mux := http.NewServeMux()
	mux.Handle(NewRoomServiceHandler(NewService(app)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewRoomServiceClient(srv.Client(), srv.URL)
}

func TestConnectRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newConnectClient(t)

	user, err := client.JoinUser(ctx, "Ada")
	require.NoError(t, err)

	room, err := client.CreateRoom(ctx, "Board", user.ID.String())
	require.NoError(t, err)

	resp, err := client.SaveCanvas(ctx, room.Slug, makeActions(4))
	require.NoError(t, err)
	assert.Equal(t, 4, resp.SavedActions)
	assert.False(t, resp.Truncated)

	got, err := client.GetRoom(ctx, room.Slug)
	require.NoError(t, err)
	assert.Equal(t, makeActions(4), got.Actions())

	rooms, err := client.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestConnectErrorsMapToSentinels(t *testing.T) {
	ctx := context.Background()
	client := newConnectClient(t)

	_, err := client.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = client.JoinUser(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
