package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// RoomsRepository defines what the app layer needs from the repository
type RoomsRepository interface {
	CreateUser(ctx context.Context, name string, now time.Time) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateRoom(ctx context.Context, name, slug string, creator *models.User, now time.Time) (*models.Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error)
	ListRecentRooms(ctx context.Context, limit int) ([]models.Room, error)
	SaveCanvas(ctx context.Context, slug string, canvas models.CanvasData, now time.Time) (*models.Room, error)
}

// SaveNotifier is told about every successful canvas save
type SaveNotifier interface {
	CanvasSaved(roomID string, savedActions int, truncated bool, savedAt time.Time)
}

// AppConfig holds the limits and breaker settings of the rooms App
type AppConfig struct {
	MaxStoredActions int
	ListLimit        int

	// BreakerFailures is the number of consecutive storage failures that open the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

// DefaultAppConfig returns the default limits
func DefaultAppConfig() AppConfig {
	return AppConfig{
		MaxStoredActions: MaxStoredActions,
		ListLimit:        DefaultListLimit,
		BreakerFailures:  5,
		BreakerTimeout:   10 * time.Second,
	}
}

// App handles rooms business logic
type App struct {
	repo     RoomsRepository
	config   AppConfig
	clock    clockwork.Clock
	notifier SaveNotifier
	breaker  *gobreaker.CircuitBreaker[*models.Room]
}

// NewApp creates a new rooms App. notifier may be nil.
func NewApp(repo RoomsRepository, config AppConfig, clock clockwork.Clock, notifier SaveNotifier) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.MaxStoredActions <= 0 {
		config.MaxStoredActions = MaxStoredActions
	}
	if config.ListLimit <= 0 {
		config.ListLimit = DefaultListLimit
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*models.Room](gobreaker.Settings{
		Name:        "rooms-store",
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// a missing room or a bad request says nothing about storage health
			return err == nil || errors.Is(err, ErrRoomNotFound) ||
				errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidRequest)
		},
	})

	return &App{
		repo:     repo,
		config:   config,
		clock:    clock,
		notifier: notifier,
		breaker:  breaker,
	}
}

// JoinUser creates a participant with a trimmed, non-empty name
func (a *App) JoinUser(ctx context.Context, req JoinUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	user, err := a.repo.CreateUser(ctx, name, a.now())
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("name", user.Name).Msg("user joined")
	return user, nil
}

// CreateRoom creates a room with an empty canvas
func (a *App) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidRequest)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q is not a valid id", ErrInvalidRequest, req.UserID)
	}

	creator, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, err
	}

	now := a.now()
	room, err := a.write(func() (*models.Room, error) {
		return a.repo.CreateRoom(ctx, name, Slugify(name, now), creator, now)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("slug", room.Slug).
		Str("user_id", creator.ID.String()).
		Msg("room created")
	return room, nil
}

// GetRoom retrieves a room and its persisted canvas by slug
func (a *App) GetRoom(ctx context.Context, slug string) (*models.Room, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidRequest)
	}
	return a.repo.GetRoomBySlug(ctx, slug)
}

// ListRooms returns the most recently updated rooms
func (a *App) ListRooms(ctx context.Context, limit int) ([]models.Room, error) {
	if limit <= 0 || limit > a.config.ListLimit {
		limit = a.config.ListLimit
	}
	return a.repo.ListRecentRooms(ctx, limit)
}

// SaveCanvas stores the most recent MaxStoredActions actions of the room's log,
// replacing the previous snapshot. Concurrent saves are last-write-wins.
func (a *App) SaveCanvas(ctx context.Context, req SaveCanvasRequest) (*SaveCanvasResponse, error) {
	if req.Slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidRequest)
	}
	if req.Actions == nil {
		return nil, fmt.Errorf("%w: invalid canvas data", ErrInvalidRequest)
	}

	kept, truncated := truncateActions(req.Actions, a.config.MaxStoredActions)

	now := a.now()
	room, err := a.write(func() (*models.Room, error) {
		return a.repo.SaveCanvas(ctx, req.Slug, models.CanvasData{Actions: kept}, now)
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("room_id", room.ID.String()).
		Str("slug", room.Slug).
		Int("received", len(req.Actions)).
		Int("saved", len(kept)).
		Bool("truncated", truncated).
		Msg("canvas saved")

	if a.notifier != nil {
		a.notifier.CanvasSaved(room.Slug, len(kept), truncated, room.UpdatedAt)
	}

	return &SaveCanvasResponse{
		Room:         room,
		SavedActions: len(kept),
		Truncated:    truncated,
	}, nil
}

// write runs a storage mutation through the circuit breaker
func (a *App) write(fn func() (*models.Room, error)) (*models.Room, error) {
	room, err := a.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	return room, nil
}

func (a *App) now() time.Time {
	return a.clock.Now().UTC().Truncate(time.Microsecond)
}

// truncateActions keeps the last max actions
func truncateActions(actions []models.DrawAction, max int) ([]models.DrawAction, bool) {
	if len(actions) <= max {
		return actions, false
	}
	return actions[len(actions)-max:], true
}
