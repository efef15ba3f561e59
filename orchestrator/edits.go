package orchestrator

import (
	"time"

	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/events"
)

// handleDocument classifies each change and (re)arms its direction's debounce slot
func (o *Orchestrator) handleDocument(at time.Time, p *events.DocumentChangedPayload) {
	switch {
	case o.disabled:
	case o.withinCooldown(at):
		o.log.Debug("edit ignored during config change", "doc", string(p.Document))
	case !o.gate.ShouldPlay(o.cfg, p.Document):
	case !o.tracker.Contains(p.Document):
	default:
		o.statHandled.Add(1)
		for _, c := range p.Changes {
			if dir, ok := c.Direction(); ok {
				o.schedule(dir)
			}
		}
		return
	}
	o.statSkipped.Add(1)
}

// schedule restarts the debounce timer of dir; the other direction is untouched
func (o *Orchestrator) schedule(dir core.Direction) {
	if t := o.debounce[dir]; t != nil {
		t.Stop()
	}
	o.debounceSeq[dir]++
	seq := o.debounceSeq[dir]
	o.debounce[dir] = o.clock.AfterFunc(o.cfg.Debounce(), func() {
		o.queue.Invoke(func() { o.fire(dir, seq) })
	})
}

// fire re-checks lifecycle and suppression, since either may have changed since scheduling
func (o *Orchestrator) fire(dir core.Direction, seq uint64) {
	if seq != o.debounceSeq[dir] {
		return
	}
	o.debounce[dir] = nil
	if o.disabled || o.configChanging {
		o.log.Debug("debounced cue dropped", "direction", dir.String(), "disabled", o.disabled, "suppressed", o.configChanging)
		return
	}
	role := dir.Role()
	if !o.cfg.RoleEnabled(role) {
		return
	}
	o.play(role, false)
}

func (o *Orchestrator) cancelDebounce() {
	for d := range o.debounce {
		if t := o.debounce[d]; t != nil {
			t.Stop()
			o.debounce[d] = nil
		}
		o.debounceSeq[d]++
	}
}
