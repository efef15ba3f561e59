package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/diffsound/attribution"
	"github.com/lixenwraith/diffsound/audio"
	"github.com/lixenwraith/diffsound/catalog"
	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/events"
	"github.com/lixenwraith/diffsound/orchestrator"
	"github.com/lixenwraith/diffsound/watcher"
)

// pinnedSource keeps a --sounds-dir override across settings reloads
type pinnedSource struct {
	*config.Store
	soundsDir string
}

func (s pinnedSource) Load() (*config.Config, error) {
	cfg, err := s.Store.Load()
	if err != nil {
		return nil, err
	}
	if s.soundsDir != "" {
		cfg.SoundsDir = s.soundsDir
	}
	return cfg, nil
}

// app is one wired diffsound instance
type app struct {
	store   *config.Store
	source  pinnedSource
	catalog *catalog.Catalog
	channel *audio.Channel
	orch    *orchestrator.Orchestrator
	watcher *watcher.Watcher
	log     *slog.Logger

	cancel context.CancelFunc
	done   chan error
}

func newApp(opts *options, sessions attribution.SessionLookup) (*app, error) {
	store := config.NewStore(opts.configPath)
	source := pinnedSource{Store: store, soundsDir: opts.soundsDir}
	cfg, err := source.Load()
	if err != nil {
		return nil, err
	}

	cat := catalog.New(cfg.SoundsDir)
	log := slog.Default().With("component", "app")
	if err := cat.EnsureDefaults(audio.SeedDefaults); err != nil {
		// Playback still works with user files alone
		log.Warn("default sounds unavailable", "error", err)
	}

	sink, err := opts.newSink()
	if err != nil {
		return nil, fmt.Errorf("audio output: %w", err)
	}

	q := events.NewEventQueue()
	ch := audio.NewChannel(sink, q.Invoke)
	orch := orchestrator.New(cfg, orchestrator.Options{
		Queue:   q,
		Player:  ch,
		Catalog: cat,
		Gate:    attribution.NewGate(sessions),
		Store:   source,
	})

	return &app{
		store:   store,
		source:  source,
		catalog: cat,
		channel: ch,
		orch:    orch,
		log:     log,
	}, nil
}

// start runs the event loop; live also follows the settings file and the sounds directory
func (a *app) start(ctx context.Context, live bool) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan error, 1)
	core.Go(func() { a.done <- a.orch.Run(ctx) })

	if !live {
		return nil
	}
	if err := a.store.Watch(func() { a.orch.ConfigChanged(nil) }); err != nil {
		a.log.Warn("settings not watched", "path", a.store.Path(), "error", err)
	}
	w, err := watcher.New(watcher.DefaultConfig(a.catalog.Root(), func() {
		a.orch.Submit(events.EventReload, nil)
	}))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		a.log.Warn("sounds directory not watched", "dir", a.catalog.Root(), "error", err)
		return nil
	}
	a.watcher = w
	return nil
}

// stop ends the loop and silences every channel
func (a *app) stop() error {
	if a.watcher != nil {
		_ = a.watcher.Stop()
	}
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	if err := <-a.done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newAudioSink prefers the speaker and falls back to a silent mixer when no device is available
func newAudioSink() (audio.Sink, error) {
	sink, err := audio.NewSpeakerSink()
	if err == nil {
		return sink, nil
	}
	slog.Default().Warn("no audio device, running silent", "component", "app", "error", err)
	return audio.NewMixerSink(beep.SampleRate(constant.AudioSampleRate)), nil
}
