package models

// ActionType distinguishes strokes from canvas clears
type ActionType string

const (
	ActionTypePath  ActionType = "path"
	ActionTypeClear ActionType = "clear"
)

// Tool is the instrument that produced a path
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

// BackgroundColor is the sentinel color eraser strokes are painted with
const BackgroundColor = "#FFFFFF"

// Point is an [x, y] canvas coordinate
type Point [2]float64

// X returns the horizontal coordinate
func (p Point) X() float64 { return p[0] }

// Y returns the vertical coordinate
func (p Point) Y() float64 { return p[1] }

// Position is a cursor location
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawAction is an atomic or incremental drawing event. The ID is stable across
// every incremental emission of one stroke, so later emissions replace earlier ones.
type DrawAction struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Tool      Tool       `json:"tool,omitempty"`
	Color     string     `json:"color,omitempty"`
	Width     float64    `json:"width,omitempty"`
	Points    []Point    `json:"points,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
}

// IsClear reports whether the action wipes everything before it
func (a DrawAction) IsClear() bool {
	return a.Type == ActionTypeClear
}

// Clone returns a copy that shares no memory with a
func (a DrawAction) Clone() DrawAction {
	if a.Points != nil {
		points := make([]Point, len(a.Points))
		copy(points, a.Points)
		a.Points = points
	}
	return a
}

// CloneActions deep-copies an action slice
func CloneActions(actions []DrawAction) []DrawAction {
	if actions == nil {
		return nil
	}
	out := make([]DrawAction, len(actions))
	for i, a := range actions {
		out[i] = a.Clone()
	}
	return out
}
