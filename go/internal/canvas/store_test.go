package canvas

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/syncboard/go/internal/models"
)

func path(id, user string, points ...models.Point) models.DrawAction {
	return models.DrawAction{
		ID:     id,
		Type:   models.ActionTypePath,
		Tool:   models.ToolPen,
		Color:  "#000000",
		Width:  3,
		Points: points,
		UserID: user,
	}
}

func newTestStore(t *testing.T, user string) *Store {
	t.Helper()
	return NewStore(user, DefaultStoreConfig(), clockwork.NewFakeClockAt(time.Unix(1700000000, 0)))
}

func ids(actions []models.DrawAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.ID
	}
	return out
}

func TestIncrementalStrokeKeepsSingleEntry(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyLocal(path("s1", "alice", models.Point{0, 0}, models.Point{5, 5}))
	s.ApplyLocal(path("s1", "alice", models.Point{0, 0}, models.Point{5, 5}, models.Point{9, 9}))

	actions := s.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "s1", actions[0].ID)
	assert.Len(t, actions[0].Points, 3)
	assert.Equal(t, []string{"s1"}, s.OwnActionIDs())
}

func TestLaterEmissionReplacesRegardlessOfPointCount(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyRemote(path("t1", "bob", models.Point{0, 0}, models.Point{1, 1}, models.Point{2, 2}))
	s.ApplyRemote(path("other", "bob", models.Point{4, 4}))
	s.ApplyRemote(path("t1", "bob", models.Point{0, 0}))

	actions := s.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, []string{"t1", "other"}, ids(actions), "replacement keeps the original position")
	assert.Len(t, actions[0].Points, 1)
	assert.Empty(t, s.OwnActionIDs())
}

func TestUndoOnlyTouchesOwnActions(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyLocal(path("S", "alice", models.Point{0, 0}))
	s.ApplyRemote(path("T", "bob", models.Point{1, 1}))

	undone, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "S", undone.ID)
	assert.Equal(t, []string{"T"}, ids(s.Actions()))

	_, ok = s.Undo()
	assert.False(t, ok, "remote strokes are never undoable")
	assert.Equal(t, []string{"T"}, ids(s.Actions()))
}

func TestUndoRedoSymmetry(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyRemote(path("r1", "bob", models.Point{0, 0}))
	s.ApplyLocal(path("a1", "alice", models.Point{1, 1}))
	s.ApplyLocal(path("a2", "alice", models.Point{2, 2}))

	beforeLog := s.Actions()
	beforeOwn := s.OwnActionIDs()

	_, ok := s.Undo()
	require.True(t, ok)
	require.True(t, s.CanRedo())

	redone, ok := s.Redo()
	require.True(t, ok)
	assert.Equal(t, "a2", redone.ID)

	assert.Equal(t, beforeLog, s.Actions())
	assert.Equal(t, beforeOwn, s.OwnActionIDs())
	assert.False(t, s.CanRedo())
}

func TestRedoReappendsWhenOthersDrewInBetween(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyLocal(path("a1", "alice", models.Point{1, 1}))
	s.ApplyRemote(path("b1", "bob", models.Point{2, 2}))

	_, ok := s.Undo()
	require.True(t, ok)
	_, ok = s.Redo()
	require.True(t, ok)

	assert.Equal(t, []string{"b1", "a1"}, ids(s.Actions()))
	assert.Equal(t, []string{"a1"}, s.OwnActionIDs())
}

func TestNewLocalActionDiscardsRedo(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyLocal(path("a1", "alice"))
	_, ok := s.Undo()
	require.True(t, ok)
	require.True(t, s.CanRedo())

	s.ApplyLocal(path("a2", "alice"))
	assert.False(t, s.CanRedo())

	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestUndoAndRedoOnEmptyStacks(t *testing.T) {
	s := newTestStore(t, "alice")

	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestUndoSkipsActionsRemovedRemotely(t *testing.T) {
	s := newTestStore(t, "alice")

	s.ApplyLocal(path("a1", "alice"))
	s.ApplyLocal(path("a2", "alice"))
	assert.True(t, s.RemoveByID("a2"))

	undone, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "a1", undone.ID)
	assert.Empty(t, s.Actions())
}

func TestRemoveByIDIsIdempotent(t *testing.T) {
	s := newTestStore(t, "alice")
	s.ApplyRemote(path("b1", "bob"))

	assert.True(t, s.RemoveByID("b1"))
	assert.False(t, s.RemoveByID("b1"))
	assert.False(t, s.RemoveByID("never-existed"))
	assert.Empty(t, s.Actions())
}

func TestUndoHistoryIsBounded(t *testing.T) {
	s := newTestStore(t, "alice")

	for i := 0; i < DefaultUndoDepth+10; i++ {
		s.ApplyLocal(path(fmt.Sprintf("a%d", i), "alice"))
	}
	for s.CanUndo() {
		_, ok := s.Undo()
		require.True(t, ok)
	}

	redone := 0
	var first models.DrawAction
	for s.CanRedo() {
		a, ok := s.Redo()
		require.True(t, ok)
		if redone == 0 {
			first = a
		}
		redone++
	}
	assert.Equal(t, DefaultUndoDepth, redone)
	assert.Equal(t, "a0", first.ID, "the most recently undone action is redone first")
}

func TestClearAppendsOwnClearAction(t *testing.T) {
	s := newTestStore(t, "alice")
	s.ApplyRemote(path("b1", "bob", models.Point{0, 0}))

	clear := s.Clear()

	assert.Equal(t, models.ActionTypeClear, clear.Type)
	assert.NotEmpty(t, clear.ID)
	assert.Equal(t, "alice", clear.UserID)
	assert.Equal(t, []string{"b1", clear.ID}, ids(s.Actions()))
	assert.Empty(t, s.Visible())
	assert.Equal(t, []string{clear.ID}, s.OwnActionIDs())

	undone, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, clear.ID, undone.ID)
	assert.Equal(t, []string{"b1"}, ids(s.Visible()))
}

func TestLoadSnapshotResetsHistory(t *testing.T) {
	s := newTestStore(t, "alice")
	s.ApplyLocal(path("a1", "alice"))
	s.ApplyLocal(path("a2", "alice"))
	_, _ = s.Undo()

	s.LoadSnapshot([]models.DrawAction{path("p1", "bob"), path("p2", "alice")})

	assert.Equal(t, []string{"p1", "p2"}, ids(s.Actions()))
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestCapacityEvictsOldestAndPrunesUndoStack(t *testing.T) {
	s := NewStore("alice", StoreConfig{LogCapacity: 3, UndoDepth: 5}, clockwork.NewFakeClock())

	s.ApplyLocal(path("a1", "alice"))
	s.ApplyRemote(path("b1", "bob"))
	s.ApplyLocal(path("a2", "alice"))
	s.ApplyRemote(path("b2", "bob"))

	assert.Equal(t, []string{"b1", "a2", "b2"}, ids(s.Actions()))
	assert.Equal(t, []string{"a2"}, s.OwnActionIDs())

	s.ApplyRemote(path("b3", "bob"))
	assert.Equal(t, []string{"a2", "b2", "b3"}, ids(s.Actions()))

	undone, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "a2", undone.ID)
	assert.False(t, s.CanUndo())
}

func TestReplayIsIdempotent(t *testing.T) {
	log := []models.DrawAction{
		path("a", "alice", models.Point{0, 0}),
		path("b", "bob", models.Point{1, 1}),
		{ID: "c", Type: models.ActionTypeClear},
		path("a", "alice", models.Point{0, 0}, models.Point{2, 2}),
		path("d", "bob", models.Point{3, 3}),
	}

	once := newTestStore(t, "viewer")
	for _, a := range log {
		once.ApplyRemote(a)
	}

	twice := newTestStore(t, "viewer")
	for i := 0; i < 2; i++ {
		for _, a := range log {
			twice.ApplyRemote(a)
		}
	}

	assert.Equal(t, once.Visible(), twice.Visible())
	assert.Equal(t, once.Actions(), twice.Actions())
	assert.Equal(t, Replay(log), once.Actions())
	assert.Equal(t, Replay(log), Replay(append(append([]models.DrawAction{}, log...), log...)))
}

func TestListenersSeeEveryMutation(t *testing.T) {
	s := newTestStore(t, "alice")

	var kinds []ChangeKind
	s.Subscribe(ListenerFunc(func(c Change) {
		kinds = append(kinds, c.Kind)
	}))

	s.ApplyLocal(path("a1", "alice"))
	s.ApplyRemote(path("b1", "bob"))
	s.RemoveByID("b1")
	s.RemoveByID("b1")
	_, _ = s.Undo()
	_, _ = s.Redo()
	s.LoadSnapshot(nil)

	assert.Equal(t, []ChangeKind{
		ChangeLocal, ChangeRemote, ChangeRemoved, ChangeUndo, ChangeRedo, ChangeSnapshot,
	}, kinds)
}

func TestActionsReturnsCopies(t *testing.T) {
	s := newTestStore(t, "alice")
	s.ApplyLocal(path("a1", "alice", models.Point{1, 1}))

	actions := s.Actions()
	actions[0].Points[0] = models.Point{9, 9}

	assert.Equal(t, models.Point{1, 1}, s.Actions()[0].Points[0])
}
