package orchestrator

import (
	"fmt"
	"path/filepath"

	"github.com/lixenwraith/diffsound/audio"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/events"
)

// reloadSounds rescans the catalog and reloads all five roles
// then (optional) runs once every load of this or a superseding reload has reported
func (o *Orchestrator) reloadSounds(then func()) {
	if !o.disabled {
		o.resumeLoop = o.resumeLoop || o.loopPlaying || o.loopDeferred
		o.silence()
	}
	if then != nil {
		o.afterReload = append(o.afterReload, then)
	}

	if o.catalog != nil {
		detected, err := o.catalog.Scan()
		if err != nil {
			o.log.Warn("sound scan failed", "error", err)
			o.status.SetMessage("sound scan failed: %v", err)
		}
		o.detected = detected
		o.cfg = o.catalog.Resolve(o.base, detected)
	} else {
		o.cfg = o.base.Clone()
	}

	if len(o.detected) == 0 {
		o.status.SetMessage("no sound files detected")
	} else {
		o.status.SetMessage("%d sound files detected", len(o.detected))
	}

	o.reloadGen++
	gen := o.reloadGen
	o.reloadPending = int(core.RoleCount)
	for _, r := range core.Roles() {
		path := ""
		if o.catalog != nil {
			path = o.catalog.ResolvePath(o.cfg.Sound(r))
		}
		name := ""
		if path != "" {
			name = filepath.Base(path)
		}
		o.statSounds[r].Store(name)
		o.player.Load(r, path, func(err error) { o.loaded(gen, r, path, err) })
	}
}

// loaded runs on the loop for every decode completion
func (o *Orchestrator) loaded(gen uint64, role core.Role, path string, err error) {
	if gen != o.reloadGen {
		return
	}
	if err != nil && path != "" {
		o.log.Warn("sound unavailable", "role", role.String(), "path", path, "error", err)
		o.status.SetMessage("%s: %v", role, err)
		o.statSounds[role].Store("")
	}
	o.reloadPending--
	if o.reloadPending > 0 {
		return
	}

	resume := o.resumeLoop
	o.resumeLoop = false
	afters := o.afterReload
	o.afterReload = nil

	if resume && !o.disabled && o.tracker.Count() > 0 {
		o.startLoop()
	}
	for _, f := range afters {
		f()
	}
	o.log.Debug("sounds reloaded", "generation", gen, "detected", len(o.detected))
}

// play issues one channel play at the role's effective volume; failures are logged and counted
func (o *Orchestrator) play(role core.Role, loop bool) error {
	vol := o.cfg.EffectiveVolume(role)
	if err := o.player.Play(role, vol, loop); err != nil {
		o.statErrors.Add(1)
		o.log.Warn("play failed", "role", role.String(), "loop", loop, "error", err)
		return err
	}
	o.statPlays[role].Add(1)
	o.statLastCue.Store(role.String())
	o.log.Debug("play", "role", role.String(), "volume", vol, "loop", loop)
	return nil
}

// --- Commands ---

func (o *Orchestrator) handleReload(p *events.CommandPayload) {
	o.reloadSounds(func() { p.Respond(nil) })
}

// handleTestPlay auditions a role regardless of open diffs and its enabled flag
func (o *Orchestrator) handleTestPlay(name string) error {
	role, ok := core.ParseRole(name)
	if !ok {
		return fmt.Errorf("%w: %q", audio.ErrUnknownRole, name)
	}
	// The active cue auditions as a one-shot so it ends on its own
	return o.play(role, false)
}

// handleRestoreDefaults is the one command whose failure reaches the caller
func (o *Orchestrator) handleRestoreDefaults(p *events.CommandPayload) {
	if o.catalog == nil {
		p.Respond(fmt.Errorf("restore defaults: no sound catalog"))
		return
	}
	n, err := o.catalog.RestoreDefaults()
	if err != nil {
		o.log.Error("restore defaults failed", "error", err)
		o.status.SetMessage("restore defaults failed: %v", err)
		p.Respond(err)
		return
	}
	o.log.Info("defaults restored", "files", n)
	o.reloadSounds(func() {
		o.status.SetMessage("restored %d default sounds", n)
		p.Respond(nil)
	})
}
