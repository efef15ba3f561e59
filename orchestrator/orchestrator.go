// Package orchestrator is the cue state machine: it turns host events into audio channel calls
//
// Every field of Orchestrator is owned by the event loop. Producers only push onto
// the queue; timers, decode completions and audio completions re-enter through it.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/diffsound/attribution"
	"github.com/lixenwraith/diffsound/catalog"
	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/events"
	"github.com/lixenwraith/diffsound/lifecycle"
	"github.com/lixenwraith/diffsound/status"
)

// ErrNotRunning is returned by blocking commands when no event loop answers
var ErrNotRunning = errors.New("orchestrator not running")

// Player is the audio surface the orchestrator drives
// Callbacks passed to Load and OnFinished must re-enter through the event queue
type Player interface {
	Load(role core.Role, path string, done func(error))
	Play(role core.Role, volume float64, loop bool) error
	Stop(role core.Role)
	StopAll()
	OnFinished(role core.Role, fn func())
	ClearFinished(role core.Role)
}

// Catalog resolves roles to files on disk
type Catalog interface {
	Scan() ([]catalog.DetectedSoundFile, error)
	Resolve(cfg *config.Config, detected []catalog.DetectedSoundFile) *config.Config
	ResolvePath(s config.SoundSetting) string
	RestoreDefaults() (int, error)
}

// ConfigSource re-reads and persists settings
type ConfigSource interface {
	Load() (*config.Config, error)
	SetEnabled(enabled bool) error
}

// Options wires the orchestrator's collaborators
// Queue and Player are required; the rest fall back to inert defaults
type Options struct {
	Queue   *events.EventQueue
	Player  Player
	Catalog Catalog
	Gate    *attribution.Gate
	Clock   Clock
	Store   ConfigSource
	Status  *status.Registry
}

// Orchestrator owns the lifecycle, config-churn and active-loop state
type Orchestrator struct {
	queue   *events.EventQueue
	router  *events.Router
	clock   Clock
	player  Player
	catalog Catalog
	gate    *attribution.Gate
	tracker *lifecycle.Tracker
	store   ConfigSource
	status  *status.Registry
	log     *slog.Logger

	// Configuration: base as persisted, cfg with files resolved against the catalog
	base    *config.Config
	cfg     *config.Config
	current atomic.Pointer[config.Config]

	// Lifecycle axis
	disabled    bool
	loopLatched bool // Loop was sounding when disabled

	// Config-churn axis
	configChanging   bool
	lastConfigChange time.Time
	cooldown         Timer
	cooldownSeq      uint64

	// Active-loop axis
	loopPlaying  bool
	loopDeferred bool   // Open cue sounding, loop starts on its completion
	loopEpoch    uint64 // Bumped whenever a deferred loop start must be abandoned

	// Debounce, one slot per direction
	debounce    [core.DirectionCount]Timer
	debounceSeq [core.DirectionCount]uint64

	// Reload bookkeeping
	reloadGen     uint64
	reloadPending int
	resumeLoop    bool
	afterReload   []func()
	detected      []catalog.DetectedSoundFile

	// Cached metric pointers
	statEnabled  *atomic.Bool
	statChanging *atomic.Bool
	statLoop     *atomic.Bool
	statDiffs    *atomic.Int64
	statHandled  *atomic.Int64
	statSkipped  *atomic.Int64
	statErrors   *atomic.Int64
	statLastCue  *status.AtomicString
	statPlays    [core.RoleCount]*atomic.Int64
	statSounds   [core.RoleCount]*status.AtomicString
	statVolumes  [core.RoleCount]*status.AtomicFloat
}

// New creates an orchestrator for cfg; nothing happens until Start
func New(cfg *config.Config, opts Options) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Queue == nil {
		opts.Queue = events.NewEventQueue()
	}
	if opts.Clock == nil {
		opts.Clock = NewTimeProvider()
	}
	if opts.Gate == nil {
		opts.Gate = attribution.NewGate(nil)
	}
	if opts.Status == nil {
		opts.Status = status.NewRegistry()
	}

	o := &Orchestrator{
		queue:   opts.Queue,
		router:  events.NewRouter(opts.Queue),
		clock:   opts.Clock,
		player:  opts.Player,
		catalog: opts.Catalog,
		gate:    opts.Gate,
		tracker: lifecycle.NewTracker(),
		store:   opts.Store,
		status:  opts.Status,
		log:     slog.Default().With("component", "orchestrator"),
		base:    cfg.Clone(),
		cfg:     cfg.Clone(),
	}
	o.current.Store(o.cfg)

	reg := o.status
	o.statEnabled = reg.Bools.Get(status.KeyEnabled)
	o.statChanging = reg.Bools.Get(status.KeyConfigChanging)
	o.statLoop = reg.Bools.Get(status.KeyLoopPlaying)
	o.statDiffs = reg.Ints.Get(status.KeyDiffsOpen)
	o.statHandled = reg.Ints.Get(status.KeyEditsHandled)
	o.statSkipped = reg.Ints.Get(status.KeyEditsSkipped)
	o.statErrors = reg.Ints.Get(status.KeyPlayErrors)
	o.statLastCue = reg.Strings.Get(status.KeyLastCue)
	for _, r := range core.Roles() {
		o.statPlays[r] = reg.Ints.Get(status.PlaysKey(r))
		o.statSounds[r] = reg.Strings.Get(status.SoundKey(r))
		o.statVolumes[r] = reg.Floats.Get(status.VolumeKey(r))
	}

	o.router.Register(o)
	return o
}

// Queue returns the event queue producers push onto
func (o *Orchestrator) Queue() *events.EventQueue { return o.queue }

// Status returns the metrics registry
func (o *Orchestrator) Status() *status.Registry { return o.status }

// Config returns the last published resolved snapshot; safe from any goroutine
func (o *Orchestrator) Config() *config.Config { return o.current.Load() }

// Start queues the initial sound load
func (o *Orchestrator) Start() {
	o.queue.Invoke(o.start)
}

func (o *Orchestrator) start() {
	o.disabled = !o.base.Enabled
	o.reloadSounds(nil)
	o.log.Info("orchestrator started", "enabled", !o.disabled, "soundsDir", o.base.SoundsDir)
}

// Drain dispatches until the queue is empty; returns the number of events handled
// Used by Run and by tests driving the loop by hand
func (o *Orchestrator) Drain() int {
	total := 0
	for {
		n := o.router.DispatchAll()
		if n == 0 {
			break
		}
		total += n
	}
	o.publish()
	return total
}

// Run starts the orchestrator and processes events until ctx is done
func (o *Orchestrator) Run(ctx context.Context) error {
	o.Start()
	for {
		o.Drain()
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case <-o.queue.Wake():
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.cancelDebounce()
	if o.cooldown != nil {
		o.cooldown.Stop()
	}
	o.player.StopAll()
	o.loopPlaying = false
	o.publish()
	o.log.Info("orchestrator stopped")
}

// --- Producer API, safe from any goroutine ---

// Submit pushes an event stamped with the current time
func (o *Orchestrator) Submit(t events.EventType, payload any) {
	o.queue.Push(events.Event{Type: t, Payload: payload, Timestamp: o.clock.Now()})
}

// DocumentChanged reports edits to doc
func (o *Orchestrator) DocumentChanged(doc core.DocumentID, changes ...core.Change) {
	o.Submit(events.EventDocumentChanged, &events.DocumentChangedPayload{Document: doc, Changes: changes})
}

// TabsChanged reports opened and closed tabs
func (o *Orchestrator) TabsChanged(opened, closed []core.Tab) {
	o.Submit(events.EventTabsChanged, &events.TabsChangedPayload{Opened: opened, Closed: closed})
}

// ConfigChanged signals new settings; nil re-reads the store
func (o *Orchestrator) ConfigChanged(cfg *config.Config) {
	o.Submit(events.EventConfigChanged, &events.ConfigChangedPayload{Config: cfg})
}

// Enable turns cues on and waits for the sounds to reload
func (o *Orchestrator) Enable(ctx context.Context) error {
	return o.command(ctx, events.EventEnable, events.NewCommand())
}

// Disable silences every channel
func (o *Orchestrator) Disable(ctx context.Context) error {
	return o.command(ctx, events.EventDisable, events.NewCommand())
}

// Reload rescans the sounds directory and waits for every role to load
func (o *Orchestrator) Reload(ctx context.Context) error {
	return o.command(ctx, events.EventReload, events.NewCommand())
}

// TestPlay auditions a role at its effective volume
func (o *Orchestrator) TestPlay(ctx context.Context, role core.Role) error {
	p := &events.TestPlayPayload{CommandPayload: *events.NewCommand(), Role: role.String()}
	return o.wait(ctx, events.EventTestPlay, p, p.Reply)
}

// RestoreDefaults copies bundled sounds over user files and reloads
func (o *Orchestrator) RestoreDefaults(ctx context.Context) error {
	return o.command(ctx, events.EventRestoreDefaults, events.NewCommand())
}

func (o *Orchestrator) command(ctx context.Context, t events.EventType, p *events.CommandPayload) error {
	return o.wait(ctx, t, p, p.Reply)
}

func (o *Orchestrator) wait(ctx context.Context, t events.EventType, payload any, reply chan error) error {
	o.Submit(t, payload)
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Join(ErrNotRunning, ctx.Err())
		}
		return ctx.Err()
	}
}

// --- events.Handler ---

// EventTypes implements events.Handler
func (o *Orchestrator) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventDocumentChanged,
		events.EventTabsChanged,
		events.EventConfigChanged,
		events.EventEnable,
		events.EventDisable,
		events.EventReload,
		events.EventTestPlay,
		events.EventRestoreDefaults,
	}
}

// HandleEvent implements events.Handler
func (o *Orchestrator) HandleEvent(ev events.Event) {
	switch ev.Type {
	case events.EventDocumentChanged:
		if p, ok := ev.Payload.(*events.DocumentChangedPayload); ok {
			o.handleDocument(ev.Timestamp, p)
		}
	case events.EventTabsChanged:
		if p, ok := ev.Payload.(*events.TabsChangedPayload); ok {
			o.handleTabs(p)
		}
	case events.EventConfigChanged:
		var cfg *config.Config
		if p, ok := ev.Payload.(*events.ConfigChangedPayload); ok && p != nil {
			cfg = p.Config
		}
		o.handleConfigChanged(ev.Timestamp, cfg)
	case events.EventEnable:
		p, _ := ev.Payload.(*events.CommandPayload)
		o.handleEnableCommand(true, p)
	case events.EventDisable:
		p, _ := ev.Payload.(*events.CommandPayload)
		o.handleEnableCommand(false, p)
	case events.EventReload:
		p, _ := ev.Payload.(*events.CommandPayload)
		o.handleReload(p)
	case events.EventTestPlay:
		if p, ok := ev.Payload.(*events.TestPlayPayload); ok {
			p.Respond(o.handleTestPlay(p.Role))
		}
	case events.EventRestoreDefaults:
		p, _ := ev.Payload.(*events.CommandPayload)
		o.handleRestoreDefaults(p)
	}
}

// publish mirrors loop-owned state into the metrics registry
func (o *Orchestrator) publish() {
	o.current.Store(o.cfg)
	o.statEnabled.Store(!o.disabled)
	o.statChanging.Store(o.configChanging)
	o.statLoop.Store(o.loopPlaying)
	o.statDiffs.Store(int64(o.tracker.Count()))
	for _, r := range core.Roles() {
		vol := 0.0
		if o.cfg.RoleEnabled(r) {
			vol = o.cfg.EffectiveVolume(r)
		}
		o.statVolumes[r].Store(vol)
	}
}
