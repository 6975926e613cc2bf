// Package player is the orchestrator: a single-writer state container that
// turns dispatched actions into new global state plus side effects.
//
// dispatch(action) is the only mutation entry point. Actions are processed
// one at a time by a single goroutine; the pure reducer computes the next
// state and the side effects, the executor performs them asynchronously,
// and every completed reduction publishes a presentation snapshot to
// subscribers. No other component writes the aggregate state.
package player

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rusel95/whitenoise/internal/catalog"
	"github.com/rusel95/whitenoise/internal/config"
	"github.com/rusel95/whitenoise/internal/db"
	"github.com/rusel95/whitenoise/internal/logger"
)

const (
	actionQueueSize   = 64
	snapshotQueueSize = 8
)

// ErrEngineStopped indicates the engine has been shut down
var ErrEngineStopped = errors.New("player engine has been stopped")

// Engine is the single source of truth for playback state.
type Engine struct {
	reducer *Reducer
	exec    *Executor

	actions  chan Action
	stopChan chan struct{}
	doneChan chan struct{}

	mu      sync.Mutex
	state   State
	subs    map[string]chan Snapshot
	stopped bool
	started bool
}

// NewEngine assembles the orchestrator with its executor.
func NewEngine(cfg *config.Config, cat *catalog.Catalog, outputs OutputFactory, repos *db.Repositories) *Engine {
	e := &Engine{
		reducer:  NewReducer(cfg.Fade),
		actions:  make(chan Action, actionQueueSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		state:    NewState(),
		subs:     make(map[string]chan Snapshot),
	}
	e.exec = NewExecutor(cat, outputs, repos, cfg.Fade.StepRate)
	e.exec.setDispatch(e.Dispatch)
	return e
}

// Start launches the dispatch loop and kicks off the initial catalog load.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	go e.run()
	e.Dispatch(LoadRequested{})

	logger.Log.Info().Msg("Player engine started")
	return nil
}

// Stop shuts the engine down: the dispatch loop exits, in-flight fades are
// cancelled, the timer stops and every output is released.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started := e.started
	e.mu.Unlock()

	close(e.stopChan)
	if started {
		<-e.doneChan
	}
	e.exec.Close()

	e.mu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.mu.Unlock()

	logger.Log.Info().Msg("Player engine stopped")
}

// Dispatch queues an action for the single-writer loop. It is the only
// mutation entry point; the remote-control surface and the UI both come
// through here with no privileged path.
func (e *Engine) Dispatch(a Action) {
	select {
	case e.actions <- a:
	case <-e.stopChan:
	}
}

// State returns a copy of the current aggregate state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	s.Channels = e.state.cloneChannels()
	return s
}

// Snapshot returns the current presentation projection.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot(time.Now())
}

// Subscribe registers a snapshot consumer. The returned channel receives a
// projection after every dispatch; slow consumers skip intermediate
// snapshots rather than blocking the loop.
func (e *Engine) Subscribe() (string, <-chan Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Snapshot, snapshotQueueSize)
	e.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a snapshot consumer.
func (e *Engine) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.subs[id]; ok {
		close(ch)
		delete(e.subs, id)
	}
}

// run is the dispatch loop: the single logical writer. No two reducer
// invocations ever run concurrently.
func (e *Engine) run() {
	defer close(e.doneChan)

	for {
		select {
		case <-e.stopChan:
			return
		case a := <-e.actions:
			e.process(a)
		}
	}
}

// process reduces one action, installs the new state, publishes a snapshot
// and hands the side effects to the executor.
func (e *Engine) process(a Action) {
	now := time.Now()

	e.mu.Lock()
	next, effects := e.reducer.Reduce(e.state, a, now)
	e.state = next
	snap := next.Snapshot(now)
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	e.mu.Unlock()

	logger.Log.Debug().
		Type("action", a).
		Str("phase", next.Phase.String()).
		Int("effects", len(effects)).
		Msg("Action dispatched")

	for _, eff := range effects {
		e.exec.Execute(eff)
	}
}
