package rooms

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/syncboard/go/internal/models"
)

const (
	RoomServiceName = "syncboard.room.v1.RoomService"

	JoinUserProcedure   = "/" + RoomServiceName + "/JoinUser"
	CreateRoomProcedure = "/" + RoomServiceName + "/CreateRoom"
	GetRoomProcedure    = "/" + RoomServiceName + "/GetRoom"
	ListRoomsProcedure  = "/" + RoomServiceName + "/ListRooms"
	SaveCanvasProcedure = "/" + RoomServiceName + "/SaveCanvas"
)

// RoomsApp defines what the service layer needs from the rooms application
type RoomsApp interface {
	JoinUser(ctx context.Context, req JoinUserRequest) (*models.User, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error)
	GetRoom(ctx context.Context, slug string) (*models.Room, error)
	ListRooms(ctx context.Context, limit int) ([]models.Room, error)
	SaveCanvas(ctx context.Context, req SaveCanvasRequest) (*SaveCanvasResponse, error)
}

// Service implements the RoomService connect procedures
type Service struct {
	app RoomsApp
}

// NewService creates a new rooms connect service
func NewService(app RoomsApp) *Service {
	return &Service{
		app: app,
	}
}

// NewRoomServiceHandler builds an HTTP handler serving every RoomService procedure
func NewRoomServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(JoinUserProcedure, connect.NewUnaryHandler(JoinUserProcedure, svc.JoinUser, opts...))
	mux.Handle(CreateRoomProcedure, connect.NewUnaryHandler(CreateRoomProcedure, svc.CreateRoom, opts...))
	mux.Handle(GetRoomProcedure, connect.NewUnaryHandler(GetRoomProcedure, svc.GetRoom, opts...))
	mux.Handle(ListRoomsProcedure, connect.NewUnaryHandler(ListRoomsProcedure, svc.ListRooms, opts...))
	mux.Handle(SaveCanvasProcedure, connect.NewUnaryHandler(SaveCanvasProcedure, svc.SaveCanvas, opts...))
	return "/" + RoomServiceName + "/", mux
}

// JoinUser creates a participant
func (s *Service) JoinUser(ctx context.Context, req *connect.Request[JoinUserRequest]) (*connect.Response[JoinUserResponse], error) {
	user, err := s.app.JoinUser(ctx, *req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&JoinUserResponse{User: user}), nil
}

// CreateRoom creates a room
func (s *Service) CreateRoom(ctx context.Context, req *connect.Request[CreateRoomRequest]) (*connect.Response[RoomResponse], error) {
	room, err := s.app.CreateRoom(ctx, *req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RoomResponse{Room: room}), nil
}

// GetRoom retrieves a room by slug
func (s *Service) GetRoom(ctx context.Context, req *connect.Request[GetRoomRequest]) (*connect.Response[RoomResponse], error) {
	room, err := s.app.GetRoom(ctx, req.Msg.Slug)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RoomResponse{Room: room}), nil
}

// ListRooms lists the most recently updated rooms
func (s *Service) ListRooms(ctx context.Context, req *connect.Request[ListRoomsRequest]) (*connect.Response[ListRoomsResponse], error) {
	rooms, err := s.app.ListRooms(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListRoomsResponse{Rooms: rooms}), nil
}

// SaveCanvas stores a room's canvas
func (s *Service) SaveCanvas(ctx context.Context, req *connect.Request[SaveCanvasRequest]) (*connect.Response[SaveCanvasResponse], error) {
	resp, err := s.app.SaveCanvas(ctx, *req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(resp), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrUserNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
