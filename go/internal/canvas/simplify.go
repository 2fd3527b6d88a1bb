package canvas

import "github.com/mcdev12/syncboard/go/internal/models"

// DefaultSimplifyTolerance is the distance in canvas pixels a simplified stroke may
// deviate from the drawn one.
const DefaultSimplifyTolerance = 2.0

// SimplifyPoints reduces a polyline with the Ramer-Douglas-Peucker algorithm. The
// endpoints are always kept and polylines shorter than 3 points are returned as is.
func SimplifyPoints(points []models.Point, tolerance float64) []models.Point {
	if len(points) < 3 {
		return append([]models.Point(nil), points...)
	}

	sqTolerance := tolerance * tolerance
	last := len(points) - 1

	keep := make([]bool, len(points))
	keep[0], keep[last] = true, true
	simplifyRange(points, 0, last, sqTolerance, keep)

	out := make([]models.Point, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// SimplifyAction returns a copy of a path action with simplified points
func SimplifyAction(action models.DrawAction, tolerance float64) models.DrawAction {
	if action.Type != models.ActionTypePath || len(action.Points) < 3 {
		return action.Clone()
	}
	out := action.Clone()
	out.Points = SimplifyPoints(action.Points, tolerance)
	return out
}

func simplifyRange(points []models.Point, first, last int, sqTolerance float64, keep []bool) {
	maxSqDist := sqTolerance
	index := -1
	for i := first + 1; i < last; i++ {
		d := sqSegmentDistance(points[i], points[first], points[last])
		if d > maxSqDist {
			index = i
			maxSqDist = d
		}
	}
	if index < 0 {
		return
	}

	keep[index] = true
	if index-first > 1 {
		simplifyRange(points, first, index, sqTolerance, keep)
	}
	if last-index > 1 {
		simplifyRange(points, index, last, sqTolerance, keep)
	}
}

// sqSegmentDistance is the squared distance from p to the segment a-b
func sqSegmentDistance(p, a, b models.Point) float64 {
	x, y := a.X(), a.Y()
	dx, dy := b.X()-x, b.Y()-y

	if dx != 0 || dy != 0 {
		t := ((p.X()-x)*dx + (p.Y()-y)*dy) / (dx*dx + dy*dy)
		if t > 1 {
			x, y = b.X(), b.Y()
		} else if t > 0 {
			x += dx * t
			y += dy * t
		}
	}

	dx, dy = p.X()-x, p.Y()-y
	return dx*dx + dy*dy
}
