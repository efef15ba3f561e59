// Package status exposes live orchestrator state to the panel and CLI
package status

import (
	"fmt"
	"sync/atomic"

	"github.com/lixenwraith/diffsound/core"
)

// Metric keys written by the orchestrator
const (
	KeyEnabled        = "enabled"
	KeyConfigChanging = "config.changing"
	KeyLoopPlaying    = "loop.playing"
	KeyDiffsOpen      = "diffs.open"
	KeyEditsHandled   = "edits.handled"
	KeyEditsSkipped   = "edits.skipped"
	KeyPlayErrors     = "play.errors"
	KeyLastCue        = "cue.last"
	KeyMessage        = "message"
)

// PlaysKey is the per-role play counter key
func PlaysKey(r core.Role) string { return "plays." + r.String() }

// SoundKey is the per-role resolved file key
func SoundKey(r core.Role) string { return "sound." + r.String() }

// VolumeKey is the per-role effective gain key
func VolumeKey(r core.Role) string { return "volume." + r.String() }

// Registry is the central metrics facade
// The event loop writes; panel and CLI read concurrently
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// Message returns the advisory status line
func (r *Registry) Message() string {
	return r.Strings.Get(KeyMessage).Load()
}

// SetMessage replaces the advisory status line
func (r *Registry) SetMessage(format string, args ...any) {
	r.Strings.Get(KeyMessage).Store(fmt.Sprintf(format, args...))
}

// Snapshot renders every metric as sorted key/value pairs
func (r *Registry) Snapshot() [][2]string {
	var out [][2]string
	r.Bools.Range(func(k string, v *atomic.Bool) {
		out = append(out, [2]string{k, fmt.Sprint(v.Load())})
	})
	r.Ints.Range(func(k string, v *atomic.Int64) {
		out = append(out, [2]string{k, fmt.Sprint(v.Load())})
	})
	r.Floats.Range(func(k string, v *AtomicFloat) {
		out = append(out, [2]string{k, fmt.Sprintf("%.2f", v.Load())})
	})
	r.Strings.Range(func(k string, v *AtomicString) {
		out = append(out, [2]string{k, v.Load()})
	})
	return out
}
