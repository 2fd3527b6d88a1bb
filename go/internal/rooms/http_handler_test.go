package rooms

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRESTServer(t *testing.T) *httptest.Server {
	t.Helper()
	app, _, _ := newTestApp(t)
	mux := http.NewServeMux()
	NewHTTPHandler(app).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRESTRoomFlow(t *testing.T) {
	srv := newRESTServer(t)

	var joined JoinUserResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/auth/join", JoinUserRequest{Name: "Ada"}, &joined))
	require.NotNil(t, joined.User)

	var created RoomResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/rooms",
		CreateRoomRequest{Name: "Team Board", UserID: joined.User.ID.String()}, &created)
	require.Equal(t, http.StatusOK, status)
	slug := created.Room.Slug

	var saved SaveCanvasResponse
	status = doJSON(t, http.MethodPut, srv.URL+"/api/rooms/"+slug+"/canvas",
		map[string]interface{}{"actions": makeActions(1200)}, &saved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1000, saved.SavedActions)
	assert.True(t, saved.Truncated)

	// beacon-style flush
	status = doJSON(t, http.MethodPost, srv.URL+"/api/rooms/"+slug+"/canvas",
		map[string]interface{}{"actions": makeActions(3)}, &saved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, saved.SavedActions)

	var fetched RoomResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/rooms/"+slug, nil, &fetched))
	assert.Len(t, fetched.Room.Actions(), 3)
	assert.Equal(t, "Ada", fetched.Room.CreatedBy.Name)

	var listed ListRoomsResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/rooms", nil, &listed))
	require.Len(t, listed.Rooms, 1)
	assert.Equal(t, slug, listed.Rooms[0].Slug)
}

func TestRESTErrors(t *testing.T) {
	srv := newRESTServer(t)
	var body errorBody

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/rooms/missing", nil, &body))
	assert.Equal(t, "Room not found", body.Error)

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPut, srv.URL+"/api/rooms/missing/canvas",
		map[string]interface{}{"actions": makeActions(1)}, &body))

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, srv.URL+"/api/auth/join", JoinUserRequest{}, &body))
	assert.Contains(t, body.Error, "name is required")

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, srv.URL+"/api/rooms/any/canvas",
		map[string]interface{}{"actions": "nope"}, &body))
	assert.Equal(t, "invalid JSON body", body.Error)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, srv.URL+"/api/rooms/any/canvas",
		map[string]interface{}{}, &body))
	assert.Contains(t, body.Error, "invalid canvas data")
}
