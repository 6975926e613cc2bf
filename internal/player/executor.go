package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rusel95/whitenoise/internal/audio"
	"github.com/rusel95/whitenoise/internal/catalog"
	"github.com/rusel95/whitenoise/internal/channel"
	"github.com/rusel95/whitenoise/internal/db"
	"github.com/rusel95/whitenoise/internal/fade"
	"github.com/rusel95/whitenoise/internal/logger"
	"github.com/rusel95/whitenoise/internal/models"
	"github.com/rusel95/whitenoise/internal/timer"
)

// OutputFactory builds audio outputs for sound source files.
// audio.Device implements it; tests substitute fakes.
type OutputFactory interface {
	NewOutput(path string) (audio.Output, error)
}

// Executor performs the side effects the reducer emits. All I/O lives
// here: fades, the timer, catalog loads and persistence. Completion is
// reported back by dispatching follow-up actions into the engine.
type Executor struct {
	cat      *catalog.Catalog
	outputs  OutputFactory
	repos    *db.Repositories
	timer    *timer.SleepTimer
	stepRate int
	dispatch func(Action)

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	machines map[string]*channel.Machine
	sounds   map[string]catalog.Sound

	// One global fade operation may be in flight at a time. Starting a new
	// one bumps the generation and cancels the previous operation's context
	// before any new fade begins.
	genMu     sync.Mutex
	gen       uint64
	genCancel context.CancelFunc
}

// NewExecutor creates an executor. dispatch is installed later by the
// engine via setDispatch.
func NewExecutor(cat *catalog.Catalog, outputs OutputFactory, repos *db.Repositories, stepRate int) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	x := &Executor{
		cat:        cat,
		outputs:    outputs,
		repos:      repos,
		stepRate:   stepRate,
		baseCtx:    ctx,
		baseCancel: cancel,
		machines:   make(map[string]*channel.Machine),
		sounds:     make(map[string]catalog.Sound),
	}
	x.timer = timer.New(
		func(remaining int) { x.dispatch(TimerTicked{Remaining: remaining}) },
		func() { x.dispatch(TimerExpired{}) },
	)
	return x
}

func (x *Executor) setDispatch(dispatch func(Action)) {
	x.dispatch = dispatch
}

// Execute performs one side effect. Global fade operations supersede the
// previous one synchronously (so cancellation is ordered with dispatch),
// then run their fan-out asynchronously.
func (x *Executor) Execute(e Effect) {
	switch eff := e.(type) {
	case PlayChannels:
		ctx, gen := x.supersede()
		go x.runPlayChannels(ctx, gen, eff)
	case PauseChannels:
		ctx, gen := x.supersede()
		go x.runPauseChannels(ctx, gen, eff)
	case PlaySingle:
		go x.runPlaySingle(eff)
	case PauseSingle:
		go x.runPauseSingle(eff)
	case AdjustVolume:
		if m := x.machine(eff.ChannelID); m != nil {
			m.SetVolume(eff.Volume)
		}
	case StopAllChannels:
		x.stopAll()
	case StartTimer:
		x.timer.Start(eff.Seconds)
	case PauseTimer:
		x.timer.Pause()
	case StopTimer:
		x.timer.Stop()
	case LoadCatalog:
		go x.runLoadCatalog()
	case SwapVariant:
		go x.runSwapVariant(eff)
	case PersistPref:
		go x.runPersistPref(eff)
	case PersistTimerMode:
		go x.runPersistTimerMode(eff)
	default:
		logger.Log.Error().
			Type("effect", e).
			Msg("Unknown effect type")
	}
}

// Close cancels every in-flight operation, stops the timer and releases
// all channel outputs.
func (x *Executor) Close() {
	x.genMu.Lock()
	if x.genCancel != nil {
		x.genCancel()
	}
	x.genMu.Unlock()

	x.baseCancel()
	x.timer.Stop()
	x.stopAll()

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, m := range x.machines {
		m.Close()
	}
	x.machines = make(map[string]*channel.Machine)
}

// supersede cancels the previous global fade operation and registers a new
// generation. It must be called from the dispatch loop so cancellations
// keep action order.
func (x *Executor) supersede() (context.Context, uint64) {
	x.genMu.Lock()
	defer x.genMu.Unlock()

	if x.genCancel != nil {
		x.genCancel()
	}
	x.gen++
	ctx, cancel := context.WithCancel(x.baseCtx)
	x.genCancel = cancel
	return ctx, x.gen
}

// isCurrent reports whether the given generation is still the latest
// global fade operation.
func (x *Executor) isCurrent(gen uint64) bool {
	x.genMu.Lock()
	defer x.genMu.Unlock()
	return x.gen == gen
}

func (x *Executor) machine(id string) *channel.Machine {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.machines[id]
}

func (x *Executor) stopAll() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, m := range x.machines {
		m.Stop()
	}
}

// runPlayChannels fans the fade-in out to every channel concurrently. The
// aggregate completion fires once every channel has finished or been
// cancelled, and is dispatched only if no newer operation superseded this
// one.
func (x *Executor) runPlayChannels(ctx context.Context, gen uint64, eff PlayChannels) {
	x.dispatch(FadeInStarted{Duration: eff.Duration})

	var g errgroup.Group
	for _, cf := range eff.Channels {
		m := x.machine(cf.ChannelID)
		if m == nil {
			continue
		}
		cf := cf
		g.Go(func() error {
			err := m.Play(ctx, cf.Volume, eff.Duration)
			x.reportChannelErr(cf.ChannelID, err)
			return nil
		})
	}
	_ = g.Wait()

	if x.isCurrent(gen) {
		x.dispatch(FadeInCompleted{})
	}
}

// runPauseChannels is the symmetric fade-out fan-out.
func (x *Executor) runPauseChannels(ctx context.Context, gen uint64, eff PauseChannels) {
	x.dispatch(FadeOutStarted{Duration: eff.Duration})

	var g errgroup.Group
	for _, id := range eff.ChannelIDs {
		m := x.machine(id)
		if m == nil {
			continue
		}
		id := id
		g.Go(func() error {
			err := m.Pause(ctx, eff.Duration)
			x.reportChannelErr(id, err)
			return nil
		})
	}
	_ = g.Wait()

	if x.isCurrent(gen) {
		x.dispatch(FadeOutCompleted{})
	}
}

// runPlaySingle fades one channel in without a global completion signal.
func (x *Executor) runPlaySingle(eff PlaySingle) {
	m := x.machine(eff.Channel.ChannelID)
	if m == nil {
		return
	}
	err := m.Play(x.baseCtx, eff.Channel.Volume, eff.Duration)
	x.reportChannelErr(eff.Channel.ChannelID, err)
}

// runPauseSingle fades one channel out without a global completion signal.
func (x *Executor) runPauseSingle(eff PauseSingle) {
	m := x.machine(eff.ChannelID)
	if m == nil {
		return
	}
	err := m.Pause(x.baseCtx, eff.Duration)
	x.reportChannelErr(eff.ChannelID, err)
}

// reportChannelErr isolates a per-channel failure: the channel is marked
// errored and everything else keeps running. A cancelled fade is a normal
// outcome, not a failure.
func (x *Executor) reportChannelErr(id string, err error) {
	if err == nil || errors.Is(err, fade.ErrCancelled) || errors.Is(err, context.Canceled) {
		return
	}
	logger.Log.Error().
		Err(err).
		Str("channel_id", id).
		Msg("Channel operation failed")
	x.dispatch(ChannelFailed{ChannelID: id, Reason: err.Error()})
}

// runLoadCatalog loads the manifest, builds a machine per sound and seeds
// volumes/variants from persisted prefs. A broken sound yields an errored
// channel, never a failed load; only a broken manifest is fatal.
func (x *Executor) runLoadCatalog() {
	sounds, err := x.cat.Load()
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Catalog load failed")
		x.dispatch(CatalogLoadFailed{Reason: err.Error()})
		return
	}

	prefs := x.loadPrefs()
	timerSeconds := x.loadTimerMode()

	states := make([]ChannelState, 0, len(sounds))
	machines := make(map[string]*channel.Machine, len(sounds))
	soundsByID := make(map[string]catalog.Sound, len(sounds))

	for _, snd := range sounds {
		st := ChannelState{
			ID:         snd.ID,
			Name:       snd.Name,
			Icon:       snd.Icon,
			Volume:     snd.Volume,
			VariantID:  snd.DefaultVariant,
			VariantIDs: snd.VariantIDs(),
		}
		if pref, ok := prefs[snd.ID]; ok {
			st.Volume = clampVolume(pref.Volume)
			if snd.HasVariant(pref.VariantID) {
				st.VariantID = pref.VariantID
			}
		}

		m := channel.New(snd.ID, fade.NewFader(x.stepRate))
		loadErr := snd.LoadErr
		if loadErr == nil {
			loadErr = x.attachOutput(m, &snd, st.VariantID)
		} else {
			m.FailLoad(loadErr)
		}
		if loadErr != nil {
			st.Failed = true
			st.FailReason = loadErr.Error()
		}

		machines[snd.ID] = m
		soundsByID[snd.ID] = snd
		states = append(states, st)
	}

	x.mu.Lock()
	old := x.machines
	x.machines = machines
	x.sounds = soundsByID
	x.mu.Unlock()
	for _, m := range old {
		m.Close()
	}

	x.dispatch(CatalogLoaded{Channels: states, TimerSeconds: timerSeconds})
}

// attachOutput builds the output for the selected variant and completes
// the machine's load.
func (x *Executor) attachOutput(m *channel.Machine, snd *catalog.Sound, variantID string) error {
	path, err := snd.VariantPath(variantID)
	if err != nil {
		m.FailLoad(err)
		return err
	}
	out, err := x.outputs.NewOutput(path)
	if err != nil {
		m.FailLoad(err)
		return err
	}
	return m.CompleteLoad(out)
}

// runSwapVariant rebuilds one channel's output from another variant,
// optionally fading it back in afterwards.
func (x *Executor) runSwapVariant(eff SwapVariant) {
	m := x.machine(eff.ChannelID)
	if m == nil {
		return
	}

	x.mu.Lock()
	snd, ok := x.sounds[eff.ChannelID]
	x.mu.Unlock()
	if !ok {
		return
	}

	// A swap always goes through Stopped so the old output is released
	// before the new decoder takes over.
	m.Stop()
	if err := m.BeginReload(); err != nil {
		x.reportChannelErr(eff.ChannelID, err)
		return
	}
	if err := x.attachOutput(m, &snd, eff.VariantID); err != nil {
		x.dispatch(ChannelFailed{ChannelID: eff.ChannelID, Reason: err.Error()})
		return
	}
	x.dispatch(ChannelReloaded{ChannelID: eff.ChannelID})

	if eff.Resume {
		err := m.Play(x.baseCtx, eff.Volume, eff.Duration)
		x.reportChannelErr(eff.ChannelID, err)
	}
}

// loadPrefs reads saved channel prefs; persistence is observability, so a
// read failure degrades to defaults instead of failing the load.
func (x *Executor) loadPrefs() map[string]models.ChannelPref {
	if x.repos == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(x.baseCtx, 5*time.Second)
	defer cancel()

	prefs, err := x.repos.Prefs.GetAll(ctx)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Msg("Failed to load channel prefs, using manifest defaults")
		return nil
	}
	return prefs
}

// loadTimerMode reads the last selected timer mode.
func (x *Executor) loadTimerMode() int {
	if x.repos == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(x.baseCtx, 5*time.Second)
	defer cancel()

	settings, err := x.repos.Settings.Get(ctx)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Msg("Failed to load player settings")
		return 0
	}
	return settings.TimerSeconds
}

func (x *Executor) runPersistPref(eff PersistPref) {
	if x.repos == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pref := &models.ChannelPref{
		ChannelID: eff.ChannelID,
		Volume:    eff.Volume,
		VariantID: eff.VariantID,
	}
	if err := x.repos.Prefs.Upsert(ctx, pref); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("channel_id", eff.ChannelID).
			Msg("Failed to persist channel pref")
	}
}

func (x *Executor) runPersistTimerMode(eff PersistTimerMode) {
	if x.repos == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings := &models.PlayerSettings{TimerSeconds: eff.Seconds}
	if err := x.repos.Settings.Update(ctx, settings); err != nil {
		logger.Log.Warn().
			Err(err).
			Msg("Failed to persist timer mode")
	}
}
