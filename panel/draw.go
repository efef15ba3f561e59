package panel

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/status"
)

var (
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleLabel    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleOn       = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleOff      = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleWarn     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleSelected = tcell.StyleDefault.Reverse(true)
)

var helpLines = []string{
	"up/down select  enter/1-5 play  space toggle  left/right role volume",
	"+/- master volume  e enable/disable  r reload  R restore defaults  q quit",
}

func (p *Panel) draw() {
	p.screen.Clear()
	reg := p.ctl.Status()
	cfg := p.ctl.Config()

	y := 0
	p.put(0, y, "diffsound", styleTitle)
	enabled := reg.Bools.Get(status.KeyEnabled).Load()
	if enabled {
		p.put(12, y, "ENABLED", styleOn)
	} else {
		p.put(12, y, "DISABLED", styleOff)
	}
	if reg.Bools.Get(status.KeyConfigChanging).Load() {
		p.put(22, y, "settings changing", styleWarn)
	}
	y += 2

	p.field(0, y, "master", fmt.Sprintf("%d%%", cfg.Volume))
	p.field(16, y, "attribution", string(cfg.AttributionMode))
	p.field(40, y, "debounce", fmt.Sprintf("%dms", cfg.DebounceMs))
	y++
	p.field(0, y, "diffs", fmt.Sprint(reg.Ints.Get(status.KeyDiffsOpen).Load()))
	loop := "off"
	if reg.Bools.Get(status.KeyLoopPlaying).Load() {
		loop = "playing"
	}
	p.field(16, y, "loop", loop)
	p.field(40, y, "last", reg.Strings.Get(status.KeyLastCue).Load())
	y++
	p.field(0, y, "edits", fmt.Sprintf("%d handled, %d skipped",
		reg.Ints.Get(status.KeyEditsHandled).Load(), reg.Ints.Get(status.KeyEditsSkipped).Load()))
	p.field(40, y, "errors", fmt.Sprint(reg.Ints.Get(status.KeyPlayErrors).Load()))
	y += 2

	p.put(2, y, fmt.Sprintf("%-12s %-4s %6s %6s  %s", "role", "on", "volume", "plays", "file"), styleLabel)
	y++
	for _, r := range core.Roles() {
		on := "no"
		if cfg.RoleEnabled(r) {
			on = "yes"
		}
		file := reg.Strings.Get(status.SoundKey(r)).Load()
		if file == "" {
			file = "(none)"
		}
		line := fmt.Sprintf("%-12s %-4s %5d%% %6d  %s", r.String(), on, cfg.RoleVolume(r),
			reg.Ints.Get(status.PlaysKey(r)).Load(), file)
		style := tcell.StyleDefault
		if r == p.selected {
			style = styleSelected
			p.put(0, y, ">", styleTitle)
		}
		p.put(2, y, line, style)
		y++
	}
	y++

	if msg := reg.Message(); msg != "" {
		p.put(0, y, msg, styleLabel)
	}
	y++
	if p.notice != "" {
		p.put(0, y, p.notice, styleWarn)
	}
	y += 2
	for _, h := range helpLines {
		p.put(0, y, h, styleLabel)
		y++
	}

	p.screen.Show()
}

func (p *Panel) field(x, y int, label, value string) {
	p.put(x, y, label+":", styleLabel)
	p.put(x+len(label)+2, y, value, tcell.StyleDefault)
}

// put writes s from x, clipping at the right edge
func (p *Panel) put(x, y int, s string, style tcell.Style) {
	w, h := p.screen.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range s {
		if x >= w {
			return
		}
		p.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
