package canvas

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/syncboard/go/internal/models"
)

func TestStrokeEmitsEveryNthPointWithSameID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewStrokeRecorder("alice", StrokeConfig{EmitEvery: 3, MinInterval: 16 * time.Millisecond}, clock)

	id := r.Begin(DefaultStyle(), models.Point{0, 0})
	assert.True(t, strings.HasPrefix(id, "alice-"))

	var emitted []models.DrawAction
	for i := 1; i <= 7; i++ {
		clock.Advance(20 * time.Millisecond)
		if update, ok := r.Extend(models.Point{float64(i), float64(i)}); ok {
			emitted = append(emitted, update)
		}
	}

	require.Len(t, emitted, 2)
	assert.Len(t, emitted[0].Points, 3)
	assert.Len(t, emitted[1].Points, 6)
	for _, u := range emitted {
		assert.Equal(t, id, u.ID)
	}

	final, ok := r.Finish()
	require.True(t, ok)
	assert.Equal(t, id, final.ID)
	assert.Len(t, final.Points, 8)
	assert.False(t, r.Active())
}

func TestStrokeThrottlesBurstsOfPoints(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewStrokeRecorder("alice", StrokeConfig{EmitEvery: 1, MinInterval: 16 * time.Millisecond}, clock)
	r.Begin(DefaultStyle(), models.Point{0, 0})

	emitted := 0
	for i := 0; i < 10; i++ {
		if _, ok := r.Extend(models.Point{float64(i), 0}); ok {
			emitted++
		}
	}
	assert.Equal(t, 1, emitted, "points within one throttle window collapse into one update")

	clock.Advance(20 * time.Millisecond)
	_, ok := r.Extend(models.Point{11, 0})
	assert.True(t, ok)
}

func TestEraserUsesBackgroundAndDoubleWidth(t *testing.T) {
	r := NewStrokeRecorder("alice", StrokeConfig{EmitEvery: 1}, clockwork.NewFakeClock())
	r.Begin(Style{Tool: models.ToolEraser, Color: "#ff0000", BrushSize: 4}, models.Point{0, 0})

	final, ok := r.Finish()
	require.True(t, ok)
	assert.Equal(t, models.ToolEraser, final.Tool)
	assert.Equal(t, models.BackgroundColor, final.Color)
	assert.Equal(t, 8.0, final.Width)
}

func TestFinishSimplifiesStroke(t *testing.T) {
	r := NewStrokeRecorder("alice", DefaultStrokeConfig(), clockwork.NewFakeClock())
	r.Begin(DefaultStyle(), models.Point{0, 0})
	for i := 1; i <= 10; i++ {
		r.Extend(models.Point{float64(i), 0})
	}

	final, ok := r.Finish()
	require.True(t, ok)
	assert.Equal(t, []models.Point{{0, 0}, {10, 0}}, final.Points)
}

func TestExtendAndFinishWithoutBegin(t *testing.T) {
	r := NewStrokeRecorder("alice", DefaultStrokeConfig(), clockwork.NewFakeClock())

	_, ok := r.Extend(models.Point{1, 1})
	assert.False(t, ok)
	_, ok = r.Finish()
	assert.False(t, ok)

	r.Begin(DefaultStyle(), models.Point{0, 0})
	r.Cancel()
	_, ok = r.Finish()
	assert.False(t, ok)
}
