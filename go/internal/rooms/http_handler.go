package rooms

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// maxCanvasBody bounds a canvas save request; 1000 long strokes fit comfortably
const maxCanvasBody = 16 << 20

// HTTPHandler serves the browser-facing REST API
type HTTPHandler struct {
	app RoomsApp
}

// NewHTTPHandler creates the REST handler
func NewHTTPHandler(app RoomsApp) *HTTPHandler {
	return &HTTPHandler{app: app}
}

// RegisterRoutes registers the REST routes with an HTTP mux
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/join", h.handleJoin)
	mux.HandleFunc("POST /api/rooms", h.handleCreateRoom)
	mux.HandleFunc("POST /api/rooms/create", h.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms", h.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{slug}", h.handleGetRoom)
	// POST is accepted for the page-unload flush, which can only send POST beacons
	mux.HandleFunc("PUT /api/rooms/{slug}/canvas", h.handleSaveCanvas)
	mux.HandleFunc("POST /api/rooms/{slug}/canvas", h.handleSaveCanvas)
}

func (h *HTTPHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinUserRequest
	if !decodeBody(w, r, &req, 1<<16) {
		return
	}
	user, err := h.app.JoinUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JoinUserResponse{User: user})
}

func (h *HTTPHandler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if !decodeBody(w, r, &req, 1<<16) {
		return
	}
	room, err := h.app.CreateRoom(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RoomResponse{Room: room})
}

func (h *HTTPHandler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a number"})
			return
		}
		limit = n
	}
	rooms, err := h.app.ListRooms(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListRoomsResponse{Rooms: rooms})
}

func (h *HTTPHandler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.app.GetRoom(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RoomResponse{Room: room})
}

func (h *HTTPHandler) handleSaveCanvas(w http.ResponseWriter, r *http.Request) {
	var req SaveCanvasRequest
	if !decodeBody(w, r, &req, maxCanvasBody) {
		return
	}
	req.Slug = r.PathValue("slug")

	resp, err := h.app.SaveCanvas(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error string `json:"error"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, ErrInvalidRequest):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrRoomNotFound):
		status, message = http.StatusNotFound, "Room not found"
	case errors.Is(err, ErrUserNotFound):
		status, message = http.StatusNotFound, "User not found"
	case errors.Is(err, ErrUnavailable):
		status, message = http.StatusServiceUnavailable, "storage unavailable"
	}

	ev := log.Debug()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	writeJSON(w, status, errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
