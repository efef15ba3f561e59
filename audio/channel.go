// Package audio owns one playable resource per cue role on top of gopxl/beep
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/lixenwraith/diffsound/core"
)

// Sentinel errors
var (
	ErrNotLoaded         = errors.New("sound not loaded")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrUnknownRole       = errors.New("unknown sound role")
)

// Executor schedules f to run later on the owner's timeline
// It is called from the audio goroutine and must not run f synchronously
type Executor func(f func())

func goExecutor(f func()) { go f() }

// instance is one live playback of a role
type instance struct {
	ctrl *beep.Ctrl
	loop bool
}

// slot is the per-role playback session
type slot struct {
	path      string
	buffer    *beep.Buffer
	gen       uint64 // Bumped on every Load/Unload; stale decodes compare against it
	volume    float64
	looping   bool
	instances map[uint64]*instance
	finished  []func()
}

// Channel holds decoded buffers for the five roles and plays them into a Sink
//
// Lock order: sink lock, then c.mu. c.mu is never held while acquiring the sink lock
type Channel struct {
	sink Sink
	exec Executor
	log  *slog.Logger

	mu     sync.Mutex
	slots  [core.RoleCount]*slot
	nextID uint64
}

// NewChannel creates a channel playing into sink; nil exec runs callbacks on fresh goroutines
func NewChannel(sink Sink, exec Executor) *Channel {
	if exec == nil {
		exec = goExecutor
	}
	c := &Channel{
		sink: sink,
		exec: exec,
		log:  slog.Default().With("component", "audio"),
	}
	for i := range c.slots {
		c.slots[i] = &slot{instances: make(map[uint64]*instance)}
	}
	return c
}

func (c *Channel) slot(role core.Role) (*slot, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, role)
	}
	return c.slots[role], nil
}

// Load reads and decodes path off the caller's goroutine
// done (optional) runs through the executor with the decode result; a failed decode
// leaves the role unplayable. Superseded loads are dropped without calling done
func (c *Channel) Load(role core.Role, path string, done func(error)) {
	s, err := c.slot(role)
	if err != nil {
		c.log.Error("load rejected", "error", err)
		return
	}
	if path == "" {
		c.Unload(role)
		if done != nil {
			c.exec(func() { done(ErrNotLoaded) })
		}
		return
	}

	c.mu.Lock()
	s.gen++
	gen := s.gen
	s.path = path
	c.mu.Unlock()

	go func() {
		buf, err := decodeFile(path, c.sink.SampleRate())

		c.mu.Lock()
		if s.gen != gen {
			c.mu.Unlock()
			c.log.Debug("stale load discarded", "role", role.String(), "path", path)
			return
		}
		s.buffer = buf
		c.mu.Unlock()

		if err != nil {
			c.log.Warn("sound decode failed", "role", role.String(), "path", path, "error", err)
		} else {
			c.log.Debug("sound loaded", "role", role.String(), "path", path, "duration", c.sink.SampleRate().D(buf.Len()))
		}
		if done != nil {
			c.exec(func() { done(err) })
		}
	}()
}

// Unload drops the buffer for role; in-flight loads for it are discarded
func (c *Channel) Unload(role core.Role) {
	s, err := c.slot(role)
	if err != nil {
		return
	}
	c.mu.Lock()
	s.gen++
	s.path = ""
	s.buffer = nil
	c.mu.Unlock()
}

// Loaded reports whether role has a decoded buffer
func (c *Channel) Loaded(role core.Role) bool {
	s, err := c.slot(role)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.buffer != nil
}

// Play starts role at a linear volume in [0,1]
// One-shots may overlap; looping is unbounded and callers stop an existing loop first
func (c *Channel) Play(role core.Role, volume float64, loop bool) error {
	s, err := c.slot(role)
	if err != nil {
		return err
	}
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}

	c.mu.Lock()
	if s.buffer == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, role)
	}
	c.nextID++
	id := c.nextID

	var src beep.Streamer
	if loop {
		src = beep.Loop(-1, s.buffer.Streamer(0, s.buffer.Len()))
	} else {
		src = beep.Seq(
			s.buffer.Streamer(0, s.buffer.Len()),
			beep.Callback(func() { c.complete(role, id) }),
		)
	}
	// Gain is additive: output = sample * (1 + Gain)
	ctrl := &beep.Ctrl{Streamer: &effects.Gain{Streamer: src, Gain: volume - 1}}
	s.instances[id] = &instance{ctrl: ctrl, loop: loop}
	s.volume = volume
	s.looping = s.looping || loop
	c.mu.Unlock()

	c.sink.Play(ctrl)
	return nil
}

// complete runs on the sink goroutine when a one-shot finishes naturally
func (c *Channel) complete(role core.Role, id uint64) {
	s := c.slots[role]

	c.mu.Lock()
	if _, ok := s.instances[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(s.instances, id)
	callbacks := s.finished
	s.finished = nil
	c.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	c.exec(func() {
		for _, fn := range callbacks {
			fn()
		}
	})
}

// Stop discards every live instance of role; queued finished callbacks stay queued
func (c *Channel) Stop(role core.Role) {
	s, err := c.slot(role)
	if err != nil {
		return
	}

	c.sink.Lock()
	c.mu.Lock()
	for id, inst := range s.instances {
		inst.ctrl.Streamer = nil
		delete(s.instances, id)
	}
	s.looping = false
	c.mu.Unlock()
	c.sink.Unlock()
}

// StopAll stops every role
func (c *Channel) StopAll() {
	for _, r := range core.Roles() {
		c.Stop(r)
	}
}

// OnFinished queues a one-shot callback for the next natural completion of a non-looping instance
func (c *Channel) OnFinished(role core.Role, fn func()) {
	s, err := c.slot(role)
	if err != nil || fn == nil {
		return
	}
	c.mu.Lock()
	s.finished = append(s.finished, fn)
	c.mu.Unlock()
}

// ClearFinished drops queued callbacks for role
func (c *Channel) ClearFinished(role core.Role) {
	s, err := c.slot(role)
	if err != nil {
		return
	}
	c.mu.Lock()
	s.finished = nil
	c.mu.Unlock()
}

// Duration returns the buffer length of role, 0 if unknown
func (c *Channel) Duration(role core.Role) time.Duration {
	s, err := c.slot(role)
	if err != nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.buffer == nil {
		return 0
	}
	return c.sink.SampleRate().D(s.buffer.Len())
}

// Playing returns the number of live instances of role
func (c *Channel) Playing(role core.Role) int {
	s, err := c.slot(role)
	if err != nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(s.instances)
}

// Path returns the file last requested for role
func (c *Channel) Path(role core.Role) string {
	s, err := c.slot(role)
	if err != nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.path
}

// Looping reports whether role has a looping instance running
func (c *Channel) Looping(role core.Role) bool {
	s, err := c.slot(role)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.looping && len(s.instances) > 0
}
