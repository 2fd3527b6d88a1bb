package client

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/canvas"
	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/mcdev12/syncboard/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

// SaveStatus is the persistence state shown to the user
type SaveStatus string

const (
	StatusSaved   SaveStatus = "saved"
	StatusSaving  SaveStatus = "saving"
	StatusUnsaved SaveStatus = "unsaved"
	StatusError   SaveStatus = "error"
)

// CanvasSaver persists a room's log
type CanvasSaver interface {
	SaveCanvas(ctx context.Context, slug string, actions []models.DrawAction) (*rooms.SaveCanvasResponse, error)
}

// LogSource is the replica an AutoSaver persists; *canvas.Store implements it
type LogSource interface {
	Actions() []models.DrawAction
}

// AutoSaverConfig holds the autosave timings
type AutoSaverConfig struct {
	// Debounce is the quiet period after the last action before a save starts.
	Debounce time.Duration
	// RetryDelay is the wait before the single retry of a failed save.
	RetryDelay time.Duration
	// SaveTimeout bounds one save request.
	SaveTimeout time.Duration
}

// DefaultAutoSaverConfig saves 3s after the last action and retries once after 5s
func DefaultAutoSaverConfig() AutoSaverConfig {
	return AutoSaverConfig{
		Debounce:    3 * time.Second,
		RetryDelay:  5 * time.Second,
		SaveTimeout: 10 * time.Second,
	}
}

// AutoSaver persists a room's log in the background. Every action resets the
// debounce timer and bumps a change generation; a save is skipped when nothing changed
// since the last saved generation, and at most one save is in flight. The log length
// alone cannot tell: undo then draw, or eviction at capacity, keep it constant.
type AutoSaver struct {
	saver  CanvasSaver
	slug   string
	source LogSource
	clock  clockwork.Clock
	config AutoSaverConfig

	mu             sync.Mutex
	debounce       clockwork.Timer
	retry          clockwork.Timer
	status         SaveStatus
	gen            uint64
	lastSavedGen   uint64
	lastSavedCount int
	inFlight       bool
	pending        bool
	stopped        bool
	onStatus       func(SaveStatus)
}

// NewAutoSaver creates an autosaver for slug reading the log from source
func NewAutoSaver(saver CanvasSaver, slug string, source LogSource, config AutoSaverConfig, clock clockwork.Clock) *AutoSaver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AutoSaver{
		saver:  saver,
		slug:   slug,
		source: source,
		clock:  clock,
		config: config,
		status: StatusSaved,
	}
}

// OnStatusChange registers a callback run on every status transition. It runs with
// the autosaver locked and must not call back into it.
func (a *AutoSaver) OnStatusChange(fn func(SaveStatus)) {
	a.mu.Lock()
	a.onStatus = fn
	a.mu.Unlock()
}

// CanvasChanged implements canvas.Listener. A loaded snapshot is already persisted;
// every other change schedules a save.
func (a *AutoSaver) CanvasChanged(change canvas.Change) {
	if change.Kind == canvas.ChangeSnapshot {
		a.MarkSaved(change.Len)
		return
	}
	a.Notify()
}

// MarkSaved records the current log, of count entries, as persisted
func (a *AutoSaver) MarkSaved(count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSavedGen = a.gen
	a.lastSavedCount = count
	a.setStatus(StatusSaved)
}

// Notify records a change, restarts the debounce timer and cancels a pending retry
func (a *AutoSaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	if a.stopped {
		return
	}

	if a.debounce != nil {
		a.debounce.Stop()
	}
	a.debounce = a.clock.AfterFunc(a.config.Debounce, func() { a.save(0) })

	if a.retry != nil {
		a.retry.Stop()
		a.retry = nil
	}
	if !a.inFlight {
		a.setStatus(StatusUnsaved)
	}
}

// Status returns the current save status
func (a *AutoSaver) Status() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// LastSavedCount returns the log length of the last successful save, for display
func (a *AutoSaver) LastSavedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSavedCount
}

// FlushOnExit stops the timers and, when the log changed since the last save, starts
// one save of the full log without waiting for it. It reports whether a save was started.
func (a *AutoSaver) FlushOnExit() bool {
	a.mu.Lock()
	a.stopLocked()
	dirty := a.gen != a.lastSavedGen
	var actions []models.DrawAction
	if dirty {
		actions = a.source.Actions()
	}
	a.mu.Unlock()

	if !dirty {
		return false
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.SaveTimeout)
		defer cancel()
		if _, err := a.saver.SaveCanvas(ctx, a.slug, actions); err != nil {
			log.Warn().Err(err).Str("slug", a.slug).Msg("exit flush failed")
		}
	}()
	return true
}

// Stop cancels pending timers without saving
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
}

func (a *AutoSaver) stopLocked() {
	a.stopped = true
	if a.debounce != nil {
		a.debounce.Stop()
	}
	if a.retry != nil {
		a.retry.Stop()
	}
}

// save performs one save attempt. attempt 0 may schedule a single retry on failure.
func (a *AutoSaver) save(attempt int) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	if a.inFlight {
		a.pending = true
		a.mu.Unlock()
		return
	}
	if a.gen == a.lastSavedGen {
		a.setStatus(StatusSaved)
		a.mu.Unlock()
		return
	}
	gen := a.gen
	actions := a.source.Actions()
	a.inFlight = true
	a.setStatus(StatusSaving)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.config.SaveTimeout)
	resp, err := a.saver.SaveCanvas(ctx, a.slug, actions)
	cancel()

	a.mu.Lock()
	a.inFlight = false
	if err != nil {
		a.setStatus(StatusError)
		log.Warn().Err(err).Str("slug", a.slug).Int("attempt", attempt+1).Msg("canvas save failed")
		if attempt == 0 && !a.stopped {
			a.retry = a.clock.AfterFunc(a.config.RetryDelay, func() { a.save(1) })
		}
	} else {
		a.lastSavedGen = gen
		a.lastSavedCount = len(actions)
		if a.gen == a.lastSavedGen {
			a.setStatus(StatusSaved)
		} else {
			a.setStatus(StatusUnsaved)
		}
		ev := log.Debug()
		if resp != nil && resp.Truncated {
			ev = log.Warn().Int("saved_actions", resp.SavedActions)
		}
		ev.Str("slug", a.slug).Int("actions", len(actions)).Msg("canvas autosaved")
	}
	rerun := a.pending && !a.stopped
	a.pending = false
	a.mu.Unlock()

	if rerun {
		a.save(0)
	}
}

func (a *AutoSaver) setStatus(s SaveStatus) {
	if a.status == s {
		return
	}
	a.status = s
	if a.onStatus != nil {
		a.onStatus(s)
	}
}
