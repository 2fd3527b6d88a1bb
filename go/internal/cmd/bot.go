package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/syncboard/go/internal/client"
	"github.com/mcdev12/syncboard/go/internal/discovery"
	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/mcdev12/syncboard/go/internal/rooms"
)

var botFlags struct {
	url      string
	room     string
	name     string
	discover bool
	strokes  int
	interval time.Duration
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Join a room as a scripted participant and draw",
	Long: `bot joins a room through the room API and the relay, draws a few strokes
and leaves, flushing its log on exit. Without --room it creates a new room.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func init() {
	botCmd.Flags().StringVar(&botFlags.url, "url", "http://localhost:8080", "relay base URL")
	botCmd.Flags().StringVar(&botFlags.room, "room", "", "slug of the room to join")
	botCmd.Flags().StringVar(&botFlags.name, "name", "syncboard-bot", "display name")
	botCmd.Flags().BoolVar(&botFlags.discover, "discover", false, "find a relay on the local network")
	botCmd.Flags().IntVar(&botFlags.strokes, "strokes", 3, "number of strokes to draw")
	botCmd.Flags().DurationVar(&botFlags.interval, "interval", 20*time.Millisecond, "delay between stroke points")
}

func runBot(ctx context.Context) error {
	baseURL := strings.TrimSuffix(botFlags.url, "/")
	if botFlags.discover {
		relays, err := discovery.Lookup(ctx, discovery.DefaultLookupTimeout)
		if err != nil {
			return err
		}
		if len(relays) == 0 {
			return errors.New("no relay found on the local network")
		}
		baseURL = relays[0].BaseURL()
		log.Info().Str("relay", relays[0].Name).Str("url", baseURL).Msg("discovered relay")
	}

	api := rooms.NewRoomServiceClient(http.DefaultClient, baseURL)
	user, err := api.JoinUser(ctx, botFlags.name)
	if err != nil {
		return fmt.Errorf("join as %q: %w", botFlags.name, err)
	}

	slug := botFlags.room
	if slug == "" {
		room, err := api.CreateRoom(ctx, botFlags.name+" canvas", user.ID.String())
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		slug = room.Slug
		log.Info().Str("slug", slug).Msg("created room")
	}

	conn := client.NewConn(client.DefaultConnConfig(webSocketURL(baseURL)))
	session := client.NewSession(
		client.DefaultSessionConfig(slug, models.UserRef{ID: user.ID.String(), Name: user.Name}),
		conn, api, nil,
	)
	conn.OnFrame(session.HandleFrame)

	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer conn.Close()

	if err := session.Enter(ctx); err != nil {
		return err
	}
	log.Info().
		Str("slug", slug).
		Str("user_id", user.ID.String()).
		Int("actions", session.Store().Len()).
		Msg("entered room")

	for i := 0; i < botFlags.strokes; i++ {
		if err := drawSpiral(ctx, session, i); err != nil {
			break
		}
	}

	roster := session.Roster()
	flushed := session.Leave()
	log.Info().
		Int("participants", len(roster)).
		Int("actions", session.Store().Len()).
		Bool("flushed", flushed).
		Msg("leaving room")

	// give the exit flush a moment to reach the server
	if flushed {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
	}
	return nil
}

// drawSpiral draws one stroke point by point, moving the cursor along with it
func drawSpiral(ctx context.Context, session *client.Session, n int) error {
	cx, cy := 200+float64(n)*150, 200.0
	point := func(step int) models.Point {
		angle := float64(step) * 0.3
		radius := float64(step) * 2
		return models.Point{cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)}
	}

	session.BeginStroke(point(0))
	ticker := time.NewTicker(botFlags.interval)
	defer ticker.Stop()

	for step := 1; step <= 40; step++ {
		select {
		case <-ctx.Done():
			session.EndStroke()
			return ctx.Err()
		case <-ticker.C:
		}
		p := point(step)
		session.ExtendStroke(p)
		session.MoveCursor(models.Position{X: p.X(), Y: p.Y()})
	}
	session.EndStroke()
	return nil
}

func webSocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws"
	default:
		return "ws://" + baseURL + "/ws"
	}
}
