package orchestrator

import (
	"time"

	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/events"
	"github.com/lixenwraith/diffsound/lifecycle"
)

// --- Lifecycle axis ---

// disable stops every channel at once; edits and tabs stay silent until enable
func (o *Orchestrator) disable() {
	if o.disabled {
		return
	}
	o.loopLatched = o.loopPlaying
	o.disabled = true
	o.silence()
	o.cancelDebounce()
	o.resumeLoop = false
	o.status.SetMessage("disabled")
	o.log.Info("disabled", "loopLatched", o.loopLatched)
}

// enable clears lingering playback, reloads, then restores the loop or closes out the latched one
// The stop-all happens inside reloadSounds
func (o *Orchestrator) enable() {
	o.disabled = false
	latched := o.loopLatched
	o.loopLatched = false

	o.reloadSounds(func() {
		if o.disabled {
			return
		}
		switch {
		case o.tracker.Count() > 0:
			o.startLoop()
		case latched && o.cfg.RoleEnabled(core.RoleDiffClose):
			// Loop was cut by disable and every diff closed meanwhile
			o.play(core.RoleDiffClose, false)
		}
	})
	o.log.Info("enabled", "diffsOpen", o.tracker.Count(), "loopLatched", latched)
}

// silence stops all five channels and abandons any deferred loop start
// Callers that must keep the loop record it before silencing
func (o *Orchestrator) silence() {
	o.player.StopAll()
	o.player.ClearFinished(core.RoleDiffOpen)
	o.loopPlaying = false
	o.loopDeferred = false
	o.loopEpoch++
}

func (o *Orchestrator) setEnabledFlag(enabled bool) {
	base := o.base.Clone()
	base.Enabled = enabled
	o.base = base

	cfg := o.cfg.Clone()
	cfg.Enabled = enabled
	o.cfg = cfg
}

func (o *Orchestrator) handleEnableCommand(enabled bool, p *events.CommandPayload) {
	o.setEnabledFlag(enabled)
	if enabled {
		o.enable()
	} else {
		o.disable()
	}

	var err error
	if o.store != nil {
		// The write comes back as a config change, which finds the flag already applied
		if err = o.store.SetEnabled(enabled); err != nil {
			o.log.Warn("persist enabled flag failed", "enabled", enabled, "error", err)
			o.status.SetMessage("could not save setting: %v", err)
		}
	}
	if enabled && err == nil {
		o.afterReload = append(o.afterReload, func() { p.Respond(nil) })
		return
	}
	p.Respond(err)
}

// --- Config-churn axis ---

// handleConfigChanged swaps the snapshot and opens the suppression window
func (o *Orchestrator) handleConfigChanged(at time.Time, cfg *config.Config) {
	if cfg == nil {
		if o.store == nil {
			return
		}
		loaded, err := o.store.Load()
		if err != nil {
			o.log.Warn("config reload failed, keeping current settings", "error", err)
			o.status.SetMessage("config error: %v", err)
			return
		}
		cfg = loaded
	}

	o.beginSuppression(at)

	if cfg.SoundsDir != o.base.SoundsDir {
		o.log.Warn("soundsDir change takes effect after restart", "current", o.base.SoundsDir, "configured", cfg.SoundsDir)
	}
	wasEnabled := !o.disabled
	o.base = cfg.Clone()
	o.cfg = cfg.Clone()

	switch {
	case wasEnabled && !cfg.Enabled:
		o.disable()
	case !wasEnabled && cfg.Enabled:
		o.enable()
	case cfg.Enabled:
		o.reloadSounds(nil)
	}
	o.log.Debug("config changed", "enabled", cfg.Enabled, "volume", cfg.Volume, "mode", string(cfg.AttributionMode))
}

func (o *Orchestrator) beginSuppression(at time.Time) {
	o.configChanging = true
	o.lastConfigChange = at
	if o.cooldown != nil {
		o.cooldown.Stop()
	}
	o.cooldownSeq++
	seq := o.cooldownSeq
	o.cooldown = o.clock.AfterFunc(constant.ConfigChangeCooldown, func() {
		o.queue.Invoke(func() { o.endSuppression(seq) })
	})
}

func (o *Orchestrator) endSuppression(seq uint64) {
	if seq != o.cooldownSeq {
		return
	}
	o.configChanging = false
	o.cooldown = nil
}

// withinCooldown measures from the edit's arrival, independent of the cooldown timer
func (o *Orchestrator) withinCooldown(at time.Time) bool {
	if o.lastConfigChange.IsZero() {
		return false
	}
	d := at.Sub(o.lastConfigChange)
	return d >= 0 && d < constant.ConfigChangeCooldown
}

// --- Active-loop axis ---

func (o *Orchestrator) handleTabs(p *events.TabsChangedPayload) {
	transitions := o.tracker.Apply(p.Opened, p.Closed)
	if len(transitions) == 0 {
		return
	}
	if o.disabled || o.configChanging {
		o.log.Debug("tab transitions counted silently", "count", o.tracker.Count(), "disabled", o.disabled, "suppressed", o.configChanging)
		return
	}
	for _, tr := range transitions {
		switch tr {
		case lifecycle.FirstOpened:
			o.onFirstOpened()
		case lifecycle.LastClosed:
			o.onLastClosed()
		}
	}
}

// onFirstOpened plays the open cue and defers the loop to its natural completion
func (o *Orchestrator) onFirstOpened() {
	openEnabled := o.cfg.RoleEnabled(core.RoleDiffOpen)
	loopEnabled := o.cfg.RoleEnabled(core.RoleDiffActive)

	if !openEnabled {
		o.startLoop()
		return
	}
	if !loopEnabled {
		o.play(core.RoleDiffOpen, false)
		return
	}

	o.loopEpoch++
	epoch := o.loopEpoch
	o.player.OnFinished(core.RoleDiffOpen, func() {
		if epoch != o.loopEpoch {
			return
		}
		if o.tracker.Count() == 0 {
			o.loopDeferred = false
			return
		}
		o.startLoop()
	})
	o.loopDeferred = true
	if err := o.play(core.RoleDiffOpen, false); err != nil {
		o.player.ClearFinished(core.RoleDiffOpen)
		o.loopEpoch++
		o.startLoop()
	}
}

// onLastClosed stops the loop then plays the close cue; without a close cue the loop keeps running
func (o *Orchestrator) onLastClosed() {
	if !o.cfg.RoleEnabled(core.RoleDiffClose) {
		return
	}
	o.stopLoop()
	o.play(core.RoleDiffClose, false)
}

func (o *Orchestrator) startLoop() {
	o.loopDeferred = false
	if o.disabled || o.loopPlaying || !o.cfg.RoleEnabled(core.RoleDiffActive) {
		return
	}
	if err := o.play(core.RoleDiffActive, true); err == nil {
		o.loopPlaying = true
	}
}

func (o *Orchestrator) stopLoop() {
	o.player.Stop(core.RoleDiffActive)
	o.loopPlaying = false
	o.loopDeferred = false
	o.loopEpoch++
}
