package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/syncboard/go/internal/models"
)

func TestSimplifyDropsCollinearPoints(t *testing.T) {
	points := []models.Point{{0, 0}, {1, 0.1}, {2, -0.1}, {3, 0}, {10, 0}}

	assert.Equal(t, []models.Point{{0, 0}, {10, 0}}, SimplifyPoints(points, DefaultSimplifyTolerance))
}

func TestSimplifyKeepsCorners(t *testing.T) {
	points := []models.Point{{0, 0}, {5, 0}, {10, 0}, {10, 5}, {10, 10}}

	assert.Equal(t, []models.Point{{0, 0}, {10, 0}, {10, 10}}, SimplifyPoints(points, DefaultSimplifyTolerance))
}

func TestSimplifyLeavesShortPathsAlone(t *testing.T) {
	points := []models.Point{{0, 0}, {1, 1}}

	assert.Equal(t, points, SimplifyPoints(points, DefaultSimplifyTolerance))
	assert.Empty(t, SimplifyPoints(nil, DefaultSimplifyTolerance))
}

func TestSimplifyActionIgnoresClears(t *testing.T) {
	clear := models.DrawAction{ID: "c", Type: models.ActionTypeClear}
	assert.Equal(t, clear, SimplifyAction(clear, DefaultSimplifyTolerance))

	stroke := path("s", "alice", models.Point{0, 0}, models.Point{1, 0}, models.Point{2, 0})
	simplified := SimplifyAction(stroke, DefaultSimplifyTolerance)
	assert.Equal(t, []models.Point{{0, 0}, {2, 0}}, simplified.Points)
	assert.Len(t, stroke.Points, 3, "input is not modified")
}
