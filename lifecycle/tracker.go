// Package lifecycle counts open comparison views and reports boundary crossings
package lifecycle

import "github.com/lixenwraith/diffsound/core"

// Transition is a boundary crossing of the open comparison count
type Transition int

const (
	None Transition = iota
	FirstOpened
	LastClosed
)

func (t Transition) String() string {
	switch t {
	case FirstOpened:
		return "first-opened"
	case LastClosed:
		return "last-closed"
	default:
		return "none"
	}
}

// Tracker is a multiset of open comparison tabs
// Not safe for concurrent use; owned by the event loop
type Tracker struct {
	open  map[string]int
	tabs  map[string]core.Tab
	count int
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		open: make(map[string]int),
		tabs: make(map[string]core.Tab),
	}
}

// Open counts a comparison tab; non-diff tabs are ignored
func (t *Tracker) Open(tab core.Tab) Transition {
	if !tab.IsDiff() {
		return None
	}
	k := tab.Key()
	t.open[k]++
	t.tabs[k] = tab
	t.count++
	if t.count == 1 {
		return FirstOpened
	}
	return None
}

// Close uncounts a comparison tab previously opened; unknown tabs are ignored
func (t *Tracker) Close(tab core.Tab) Transition {
	if !tab.IsDiff() {
		return None
	}
	k := tab.Key()
	if t.open[k] == 0 {
		return None
	}
	t.open[k]--
	if t.open[k] == 0 {
		delete(t.open, k)
		delete(t.tabs, k)
	}
	t.count--
	if t.count == 0 {
		return LastClosed
	}
	return None
}

// Apply processes opened before closed and returns every non-None transition in order
func (t *Tracker) Apply(opened, closed []core.Tab) []Transition {
	var out []Transition
	for _, tab := range opened {
		if tr := t.Open(tab); tr != None {
			out = append(out, tr)
		}
	}
	for _, tab := range closed {
		if tr := t.Close(tab); tr != None {
			out = append(out, tr)
		}
	}
	return out
}

// Count returns the number of open comparison tabs
func (t *Tracker) Count() int {
	return t.count
}

// Contains reports whether any open comparison references doc on either side
func (t *Tracker) Contains(doc core.DocumentID) bool {
	for _, tab := range t.tabs {
		if tab.References(doc) {
			return true
		}
	}
	return false
}

// Reset forgets every open tab
func (t *Tracker) Reset() {
	clear(t.open)
	clear(t.tabs)
	t.count = 0
}
