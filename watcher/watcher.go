// Package watcher reloads sounds when audio files under the sounds root change
package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lixenwraith/diffsound/catalog"
	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
)

// ErrAlreadyStarted is returned by a second Start
var ErrAlreadyStarted = errors.New("watcher already started")

// Config configures a Watcher
type Config struct {
	// Dir is the sounds root; its defaults folder is watched too when present
	Dir string
	// Debounce coalesces bursts of writes into one notification
	Debounce time.Duration
	// OnChange is called from the watcher goroutine after a burst settles
	OnChange func()
}

// DefaultConfig returns a config for dir with the standard debounce
func DefaultConfig(dir string, onChange func()) Config {
	return Config{Dir: dir, Debounce: constant.WatcherDebounce, OnChange: onChange}
}

// Watcher notifies on audio file changes in the sounds directories
type Watcher struct {
	cfg Config
	fsw *fsnotify.Watcher
	log *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// New creates a watcher; nothing is watched until Start
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watcher: empty directory")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = constant.WatcherDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	return &Watcher{
		cfg:    cfg,
		fsw:    fsw,
		log:    slog.Default().With("component", "watcher"),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}, nil
}

// Start adds the directories and begins the event loop
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	if err := w.fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	defaults := filepath.Join(w.cfg.Dir, constant.DefaultsDirName)
	if info, err := os.Stat(defaults); err == nil && info.IsDir() {
		if err := w.fsw.Add(defaults); err != nil {
			w.log.Warn("defaults folder not watched", "dir", defaults, "error", err)
		}
	}

	w.started = true
	core.Go(w.loop)
	w.log.Debug("watching sounds", "dir", w.cfg.Dir, "debounce", w.cfg.Debounce)
	return nil
}

// Stop ends the event loop and releases the fs watcher; safe to call more than once
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.done)
	w.mu.Unlock()

	err := w.fsw.Close()
	if started {
		<-w.exited
	}
	return err
}

func (w *Watcher) loop() {
	defer close(w.exited)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("sound file changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("fs watcher error", "error", err)

		case <-fire:
			fire = nil
			if w.cfg.OnChange != nil {
				w.cfg.OnChange()
			}
		}
	}
}

// relevant keeps content changes to audio files; attribute-only events are dropped
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return catalog.IsAudioFile(ev.Name)
}
