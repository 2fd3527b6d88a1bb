package canvas

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/models"
	"golang.org/x/time/rate"
)

// Style is the brush state a stroke is drawn with
type Style struct {
	Tool      models.Tool
	Color     string
	BrushSize float64
}

// DefaultStyle is a thin black pen
func DefaultStyle() Style {
	return Style{Tool: models.ToolPen, Color: "#000000", BrushSize: 3}
}

// apply sets the color and width an action is rendered with. Erasers paint the
// background color at twice the brush size.
func (s Style) apply(a *models.DrawAction) {
	a.Tool = s.Tool
	if a.Tool == "" {
		a.Tool = models.ToolPen
	}
	if a.Tool == models.ToolEraser {
		a.Color = models.BackgroundColor
		a.Width = s.BrushSize * 2
		return
	}
	a.Color = s.Color
	a.Width = s.BrushSize
}

// StrokeConfig controls incremental stroke emission
type StrokeConfig struct {
	// EmitEvery emits an incremental update when the point count is a multiple of it.
	EmitEvery int
	// MinInterval is the throttle window between incremental updates.
	MinInterval time.Duration
	// Simplify runs finished strokes through SimplifyPoints.
	Simplify  bool
	Tolerance float64
}

// DefaultStrokeConfig emits every third point, at most ~60 times per second
func DefaultStrokeConfig() StrokeConfig {
	return StrokeConfig{
		EmitEvery:   3,
		MinInterval: 16 * time.Millisecond,
		Simplify:    true,
		Tolerance:   DefaultSimplifyTolerance,
	}
}

// StrokeRecorder turns one pointer gesture into a DrawAction. While the gesture is in
// progress it yields rate-limited incremental emissions that share the stroke id, so
// peers see the stroke live and replace it as it grows.
type StrokeRecorder struct {
	config  StrokeConfig
	clock   clockwork.Clock
	limiter *rate.Limiter

	userID string
	active bool
	action models.DrawAction
}

// NewStrokeRecorder creates a recorder for the given author
func NewStrokeRecorder(userID string, config StrokeConfig, clock clockwork.Clock) *StrokeRecorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.EmitEvery <= 0 {
		config.EmitEvery = 1
	}
	limit := rate.Inf
	if config.MinInterval > 0 {
		limit = rate.Every(config.MinInterval)
	}
	return &StrokeRecorder{
		config:  config,
		clock:   clock,
		limiter: rate.NewLimiter(limit, 1),
		userID:  userID,
	}
}

// Begin starts a new stroke at start and returns its id
func (r *StrokeRecorder) Begin(style Style, start models.Point) string {
	now := r.clock.Now()
	r.action = models.DrawAction{
		ID:        NewActionID(r.userID, now),
		Type:      models.ActionTypePath,
		Points:    []models.Point{start},
		UserID:    r.userID,
		Timestamp: now.UnixMilli(),
	}
	style.apply(&r.action)
	r.active = true
	return r.action.ID
}

// Extend adds a point to the stroke. When an incremental update is due it is returned
// with ok set; the caller relays it without recording it as an own action.
func (r *StrokeRecorder) Extend(p models.Point) (models.DrawAction, bool) {
	if !r.active {
		return models.DrawAction{}, false
	}
	r.action.Points = append(r.action.Points, p)

	if len(r.action.Points)%r.config.EmitEvery != 0 {
		return models.DrawAction{}, false
	}
	now := r.clock.Now()
	if !r.limiter.AllowN(now, 1) {
		return models.DrawAction{}, false
	}

	update := r.action.Clone()
	update.Timestamp = now.UnixMilli()
	return update, true
}

// Finish ends the gesture and returns the authoritative action. ok is false when no
// stroke was in progress.
func (r *StrokeRecorder) Finish() (models.DrawAction, bool) {
	if !r.active {
		return models.DrawAction{}, false
	}
	r.active = false

	final := r.action.Clone()
	final.Timestamp = r.clock.Now().UnixMilli()
	if r.config.Simplify {
		final = SimplifyAction(final, r.config.Tolerance)
	}
	r.action = models.DrawAction{}
	return final, true
}

// Cancel drops the stroke in progress without producing an action
func (r *StrokeRecorder) Cancel() {
	r.active = false
	r.action = models.DrawAction{}
}

// Active reports whether a gesture is in progress
func (r *StrokeRecorder) Active() bool {
	return r.active
}
