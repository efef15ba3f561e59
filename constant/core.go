package constant

import "time"

// Orchestrator Timing
const (
	// ConfigChangeCooldown is the window after a configuration change during which edits are treated as UI noise
	ConfigChangeCooldown = 2000 * time.Millisecond

	// DefaultDebounce is the settling period for add/remove cues when debounceMs is unset
	DefaultDebounce = 1 * time.Millisecond

	// WatcherDebounce coalesces bursts of sounds-directory writes into one reload
	WatcherDebounce = 250 * time.Millisecond

	// PanelRefreshInterval is the status panel redraw rate
	PanelRefreshInterval = 100 * time.Millisecond
)

// Event Queue
const (
	// EventQueueSize is the initial capacity of the pending-event slice
	EventQueueSize = 256

	// EventQueueWarn logs once when the backlog grows past this many events
	EventQueueWarn = 4096
)

// Volume Bounds
const (
	VolumeMin = 0
	VolumeMax = 100
)

// Sounds Directory Layout
const (
	DefaultsDirName = "defaults"
	ReadmeStem      = "readme"
)
