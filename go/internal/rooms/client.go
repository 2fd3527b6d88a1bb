package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/syncboard/go/internal/models"
)

// RoomServiceClient calls RoomService over connect
type RoomServiceClient struct {
	joinUser   *connect.Client[JoinUserRequest, JoinUserResponse]
	createRoom *connect.Client[CreateRoomRequest, RoomResponse]
	getRoom    *connect.Client[GetRoomRequest, RoomResponse]
	listRooms  *connect.Client[ListRoomsRequest, ListRoomsResponse]
	saveCanvas *connect.Client[SaveCanvasRequest, SaveCanvasResponse]
}

// NewRoomServiceClient creates a client for the service at baseURL
func NewRoomServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RoomServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &RoomServiceClient{
		joinUser:   connect.NewClient[JoinUserRequest, JoinUserResponse](httpClient, baseURL+JoinUserProcedure, opts...),
		createRoom: connect.NewClient[CreateRoomRequest, RoomResponse](httpClient, baseURL+CreateRoomProcedure, opts...),
		getRoom:    connect.NewClient[GetRoomRequest, RoomResponse](httpClient, baseURL+GetRoomProcedure, opts...),
		listRooms:  connect.NewClient[ListRoomsRequest, ListRoomsResponse](httpClient, baseURL+ListRoomsProcedure, opts...),
		saveCanvas: connect.NewClient[SaveCanvasRequest, SaveCanvasResponse](httpClient, baseURL+SaveCanvasProcedure, opts...),
	}
}

// JoinUser creates a participant
func (c *RoomServiceClient) JoinUser(ctx context.Context, name string) (*models.User, error) {
	resp, err := c.joinUser.CallUnary(ctx, connect.NewRequest(&JoinUserRequest{Name: name}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.User, nil
}

// CreateRoom creates a room owned by userID
func (c *RoomServiceClient) CreateRoom(ctx context.Context, name, userID string) (*models.Room, error) {
	resp, err := c.createRoom.CallUnary(ctx, connect.NewRequest(&CreateRoomRequest{Name: name, UserID: userID}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Room, nil
}

// GetRoom fetches a room and its snapshot
func (c *RoomServiceClient) GetRoom(ctx context.Context, slug string) (*models.Room, error) {
	resp, err := c.getRoom.CallUnary(ctx, connect.NewRequest(&GetRoomRequest{Slug: slug}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Room, nil
}

// ListRooms lists recently updated rooms
func (c *RoomServiceClient) ListRooms(ctx context.Context) ([]models.Room, error) {
	resp, err := c.listRooms.CallUnary(ctx, connect.NewRequest(&ListRoomsRequest{}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Rooms, nil
}

// SaveCanvas persists a room's log
func (c *RoomServiceClient) SaveCanvas(ctx context.Context, slug string, actions []models.DrawAction) (*SaveCanvasResponse, error) {
	if actions == nil {
		actions = []models.DrawAction{}
	}
	resp, err := c.saveCanvas.CallUnary(ctx, connect.NewRequest(&SaveCanvasRequest{Slug: slug, Actions: actions}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg, nil
}

// fromConnectError restores the package sentinel errors on the client side
func fromConnectError(err error) error {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}
	switch connectErr.Code() {
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %s", ErrRoomNotFound, connectErr.Message())
	case connect.CodeInvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, connectErr.Message())
	case connect.CodeUnavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, connectErr.Message())
	}
	return err
}
