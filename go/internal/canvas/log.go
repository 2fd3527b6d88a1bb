package canvas

import "github.com/mcdev12/syncboard/go/internal/models"

// VisibleActions returns the entries drawn when rendering a log: everything after the
// last clear. Entries before a clear stay in the log but are not drawn.
func VisibleActions(actions []models.DrawAction) []models.DrawAction {
	start := 0
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].IsClear() {
			start = i + 1
			break
		}
	}
	visible := make([]models.DrawAction, 0, len(actions)-start)
	for _, a := range actions[start:] {
		if a.Type == models.ActionTypePath {
			visible = append(visible, a)
		}
	}
	return visible
}

// Replay applies actions in order to an empty log with replace-on-id semantics
func Replay(actions []models.DrawAction) []models.DrawAction {
	log := make([]models.DrawAction, 0, len(actions))
	index := make(map[string]int, len(actions))
	for _, a := range actions {
		if i, ok := index[a.ID]; ok {
			log[i] = a.Clone()
			continue
		}
		index[a.ID] = len(log)
		log = append(log, a.Clone())
	}
	return log
}
