// Package panel is the interactive terminal status and settings view
package panel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/status"
)

const (
	commandTimeout = 5 * time.Second
	volumeStep     = 5
)

// Controller issues commands to the orchestrator
type Controller interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reload(ctx context.Context) error
	TestPlay(ctx context.Context, role core.Role) error
	RestoreDefaults(ctx context.Context) error
	Config() *config.Config
	Status() *status.Registry
}

// Settings persists single keys; the resulting file change reaches the orchestrator through the store watcher
type Settings interface {
	SetValue(key string, value any) error
}

// Panel renders status and maps keys to commands
type Panel struct {
	screen   tcell.Screen
	ctl      Controller
	settings Settings
	log      *slog.Logger

	selected       core.Role
	notice         string
	confirmRestore bool

	results chan string
}

// New creates a panel on an uninitialised screen; settings may be nil for a read-only panel
func New(screen tcell.Screen, ctl Controller, settings Settings) *Panel {
	return &Panel{
		screen:   screen,
		ctl:      ctl,
		settings: settings,
		log:      slog.Default().With("component", "panel"),
		results:  make(chan string, 8),
	}
}

// NewScreen creates the terminal screen
func NewScreen() (tcell.Screen, error) {
	return tcell.NewScreen()
}

// Run owns the screen until quit or ctx ends
func (p *Panel) Run(ctx context.Context) error {
	if err := p.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	core.SetCrashTerminal(p.screen)
	defer func() {
		core.SetCrashTerminal(nil)
		p.screen.Fini()
	}()
	p.screen.HideCursor()

	eventChan := make(chan tcell.Event, 100)
	core.Go(func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	})

	ticker := time.NewTicker(constant.PanelRefreshInterval)
	defer ticker.Stop()

	p.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-eventChan:
			if !p.handleInput(ctx, ev) {
				return nil
			}
		case msg := <-p.results:
			p.notice = msg
		case <-ticker.C:
		}
		p.draw()
	}
}

// handleInput returns false on quit
func (p *Panel) handleInput(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.handleKey(ctx, ev.Key(), ev.Rune())
	case *tcell.EventResize:
		p.screen.Sync()
	}
	return true
}

func (p *Panel) handleKey(ctx context.Context, key tcell.Key, r rune) bool {
	confirming := p.confirmRestore
	p.confirmRestore = false

	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		p.selected = (p.selected + core.RoleCount - 1) % core.RoleCount
	case tcell.KeyDown:
		p.selected = (p.selected + 1) % core.RoleCount
	case tcell.KeyLeft:
		p.adjustRoleVolume(-volumeStep)
	case tcell.KeyRight:
		p.adjustRoleVolume(volumeStep)
	case tcell.KeyEnter:
		role := p.selected
		p.dispatch(ctx, "play "+role.String(), func(ctx context.Context) error { return p.ctl.TestPlay(ctx, role) })
	case tcell.KeyRune:
		return p.handleRune(ctx, r, confirming)
	}
	return true
}

func (p *Panel) handleRune(ctx context.Context, r rune, confirming bool) bool {
	switch r {
	case 'q':
		return false
	case 'e':
		if p.ctl.Status().Bools.Get(status.KeyEnabled).Load() {
			p.dispatch(ctx, "disable", p.ctl.Disable)
		} else {
			p.dispatch(ctx, "enable", p.ctl.Enable)
		}
	case 'r':
		p.dispatch(ctx, "reload", p.ctl.Reload)
	case 'R':
		if !confirming {
			p.confirmRestore = true
			p.notice = "press R again to overwrite user sounds with defaults"
			return true
		}
		p.dispatch(ctx, "restore defaults", p.ctl.RestoreDefaults)
	case ' ':
		p.toggleRole()
	case '+', '=':
		p.adjustMasterVolume(volumeStep)
	case '-':
		p.adjustMasterVolume(-volumeStep)
	case '1', '2', '3', '4', '5':
		role := core.Role(r - '1')
		p.dispatch(ctx, "play "+role.String(), func(ctx context.Context) error { return p.ctl.TestPlay(ctx, role) })
	}
	return true
}

// dispatch runs a blocking command off the input loop and posts its outcome
func (p *Panel) dispatch(ctx context.Context, name string, fn func(context.Context) error) {
	p.notice = name + "..."
	core.Go(func() {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		msg := name + ": ok"
		if err := fn(cctx); err != nil {
			p.log.Warn("command failed", "command", name, "error", err)
			msg = fmt.Sprintf("%s: %v", name, err)
		}
		select {
		case p.results <- msg:
		default:
		}
	})
}

func (p *Panel) toggleRole() {
	cfg := p.ctl.Config()
	key := config.SettingKey(p.selected) + ".enabled"
	p.persist(key, !cfg.RoleEnabled(p.selected))
}

func (p *Panel) adjustRoleVolume(delta int) {
	cfg := p.ctl.Config()
	key := config.SettingKey(p.selected) + ".volume"
	p.persist(key, config.ClampVolume(cfg.RoleVolume(p.selected)+delta))
}

func (p *Panel) adjustMasterVolume(delta int) {
	cfg := p.ctl.Config()
	p.persist("volume", config.ClampVolume(cfg.Volume+delta))
}

func (p *Panel) persist(key string, value any) {
	if p.settings == nil {
		p.notice = "settings are read-only"
		return
	}
	if err := p.settings.SetValue(key, value); err != nil {
		p.log.Warn("save setting failed", "key", key, "error", err)
		p.notice = fmt.Sprintf("save %s: %v", key, err)
		return
	}
	p.notice = fmt.Sprintf("%s = %v", key, value)
}
