package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lixenwraith/diffsound/audio"
	"github.com/lixenwraith/diffsound/catalog"
	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/events"
	"github.com/lixenwraith/diffsound/status"
)

// --- Test doubles ---

type call struct {
	op     string // play, loop, stop, stopall
	role   core.Role
	volume float64
}

func (c call) String() string {
	if c.op == "stopall" {
		return c.op
	}
	return c.op + " " + c.role.String()
}

// fakePlayer records play/stop calls; loads succeed for any non-empty path
type fakePlayer struct {
	exec     func(func())
	calls    []call
	loaded   [core.RoleCount]bool
	finished [core.RoleCount][]func()
}

func (p *fakePlayer) Load(role core.Role, path string, done func(error)) {
	p.loaded[role] = path != ""
	var err error
	if path == "" {
		err = audio.ErrNotLoaded
	}
	p.exec(func() { done(err) })
}

func (p *fakePlayer) Play(role core.Role, volume float64, loop bool) error {
	if !p.loaded[role] {
		return audio.ErrNotLoaded
	}
	op := "play"
	if loop {
		op = "loop"
	}
	p.calls = append(p.calls, call{op: op, role: role, volume: volume})
	return nil
}

func (p *fakePlayer) Stop(role core.Role) { p.calls = append(p.calls, call{op: "stop", role: role}) }
func (p *fakePlayer) StopAll()            { p.calls = append(p.calls, call{op: "stopall"}) }

func (p *fakePlayer) OnFinished(role core.Role, fn func()) {
	p.finished[role] = append(p.finished[role], fn)
}

func (p *fakePlayer) ClearFinished(role core.Role) { p.finished[role] = nil }

// finish simulates natural completion of a one-shot
func (p *fakePlayer) finish(role core.Role) {
	fns := p.finished[role]
	p.finished[role] = nil
	for _, fn := range fns {
		p.exec(fn)
	}
}

func (p *fakePlayer) trace() string {
	parts := make([]string, len(p.calls))
	for i, c := range p.calls {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func (p *fakePlayer) count(op string, role core.Role) int {
	n := 0
	for _, c := range p.calls {
		if c.op == op && c.role == role {
			n++
		}
	}
	return n
}

type harness struct {
	t     *testing.T
	o     *Orchestrator
	p     *fakePlayer
	clock *MockClock
	dir   string
	cfg   *config.Config
}

var (
	diffTab  = core.Tab{Label: "main.go (Working Tree)", Original: "git:/repo/main.go", Modified: "file:///repo/main.go"}
	diffTab2 = core.Tab{Label: "util.go (Index)", Original: "git:/repo/util.go", Modified: "file:///repo/util.go"}
	editDoc  = core.DocumentID("file:///repo/main.go")
)

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	for _, r := range core.Roles() {
		if err := os.WriteFile(filepath.Join(dir, r.String()+".wav"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.SoundsDir = dir
	cfg.DebounceMs = 50
	if mutate != nil {
		mutate(cfg)
	}

	q := events.NewEventQueue()
	p := &fakePlayer{exec: q.Invoke}
	clock := NewMockClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	o := New(cfg, Options{
		Queue:   q,
		Player:  p,
		Catalog: catalog.New(dir),
		Clock:   clock,
	})
	o.Start()
	o.Drain()
	p.calls = nil

	return &harness{t: t, o: o, p: p, clock: clock, dir: dir, cfg: cfg}
}

// advance moves the mock clock and processes whatever the timers queued
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.o.Drain()
}

func (h *harness) openDiff(tabs ...core.Tab) {
	h.o.TabsChanged(tabs, nil)
	h.o.Drain()
}

func (h *harness) closeDiff(tabs ...core.Tab) {
	h.o.TabsChanged(nil, tabs)
	h.o.Drain()
}

// openDiffSettled opens a diff, completes the open cue and clears the trace
func (h *harness) openDiffSettled() {
	h.openDiff(diffTab)
	h.p.finish(core.RoleDiffOpen)
	h.o.Drain()
	if !h.o.loopPlaying {
		h.t.Fatalf("loop not playing after open cue completed: %s", h.p.trace())
	}
	h.p.calls = nil
}

func (h *harness) insert() {
	h.o.DocumentChanged(editDoc, core.Change{RangeLength: 0, TextLength: 1})
	h.o.Drain()
}

func (h *harness) delete() {
	h.o.DocumentChanged(editDoc, core.Change{RangeLength: 1, TextLength: 0})
	h.o.Drain()
}

func (h *harness) command(t events.EventType) error {
	cmd := events.NewCommand()
	h.o.Submit(t, cmd)
	h.o.Drain()
	select {
	case err := <-cmd.Reply:
		return err
	default:
		h.t.Fatalf("command %s did not reply", t)
		return nil
	}
}

func (h *harness) expectTrace(want string) {
	h.t.Helper()
	if got := h.p.trace(); got != want {
		h.t.Errorf("trace = %q, want %q", got, want)
	}
}

// --- Lifecycle axis ---

// TestDisabledConfigIsSilent verifies no play or stop happens while disabled from the start
func TestDisabledConfigIsSilent(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Enabled = false })

	h.openDiff(diffTab)
	if h.o.tracker.Count() != 1 {
		t.Error("tabs not counted while disabled")
	}
	h.p.finish(core.RoleDiffOpen)
	h.insert()
	h.delete()
	h.advance(time.Second)
	h.closeDiff(diffTab)
	h.advance(time.Second)

	if len(h.p.calls) != 0 {
		t.Fatalf("disabled orchestrator issued calls: %s", h.p.trace())
	}
}

// TestDisableStopsOnceThenSilent verifies the only call after disabling is the stop-all
func TestDisableStopsOnceThenSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()
	h.insert() // Pending debounce at disable time

	disabled := h.cfg.Clone()
	disabled.Enabled = false
	h.o.ConfigChanged(disabled)
	h.o.Drain()

	h.openDiff(diffTab2)
	h.insert()
	h.delete()
	h.closeDiff(diffTab, diffTab2)
	h.advance(5 * time.Second)

	h.expectTrace("stopall")
	if h.o.Status().Bools.Get(status.KeyEnabled).Load() {
		t.Error("status still reports enabled")
	}
}

// TestEnableAfterLatchedLoopPlaysClose verifies a loop cut by disable is closed out on enable
func TestEnableAfterLatchedLoopPlaysClose(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	if err := h.command(events.EventDisable); err != nil {
		t.Fatal(err)
	}
	h.closeDiff(diffTab)
	if err := h.command(events.EventEnable); err != nil {
		t.Fatal(err)
	}

	h.expectTrace("stopall, stopall, play diffclose")
}

// TestEnableWithOpenDiffRestartsLoop verifies the loop resumes when diffs are still open
func TestEnableWithOpenDiffRestartsLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	if err := h.command(events.EventDisable); err != nil {
		t.Fatal(err)
	}
	if err := h.command(events.EventEnable); err != nil {
		t.Fatal(err)
	}

	h.expectTrace("stopall, stopall, loop diffactive")
	if !h.o.loopPlaying {
		t.Error("loop flag not restored")
	}
}

// --- Edits ---

// TestDebounceCollapse verifies a burst of insertions yields one add after the last + D
func TestDebounceCollapse(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	for i := 0; i < 5; i++ {
		h.insert()
		h.advance(10 * time.Millisecond)
	}
	// Last insertion was 10ms ago; D = 50ms
	h.advance(39 * time.Millisecond)
	if n := h.p.count("play", core.RoleAdd); n != 0 {
		t.Fatalf("add played %d times before settling", n)
	}
	h.advance(time.Millisecond)
	if n := h.p.count("play", core.RoleAdd); n != 1 {
		t.Fatalf("add played %d times, want 1", n)
	}
	h.advance(time.Second)
	if n := h.p.count("play", core.RoleAdd); n != 1 {
		t.Errorf("add played %d times after idle, want 1", n)
	}
}

// TestOppositeDirectionsIndependent verifies add and remove debounce on separate timers
func TestOppositeDirectionsIndependent(t *testing.T) {
	tests := []struct {
		name string
		edit func(h *harness)
	}{
		{"separate notifications", func(h *harness) {
			h.insert()
			h.delete()
		}},
		{"one notification", func(h *harness) {
			h.o.DocumentChanged(editDoc,
				core.Change{RangeLength: 0, TextLength: 4},
				core.Change{RangeLength: 3, TextLength: 0},
			)
			h.o.Drain()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.openDiffSettled()

			tt.edit(h)
			h.advance(100 * time.Millisecond)

			if h.p.count("play", core.RoleAdd) != 1 || h.p.count("play", core.RoleRemove) != 1 {
				t.Errorf("trace = %s, want one add and one remove", h.p.trace())
			}
		})
	}
}

// TestReplacementClassification verifies replacements follow the length comparison
func TestReplacementClassification(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	h.o.DocumentChanged(editDoc, core.Change{RangeLength: 3, TextLength: 3})
	h.o.Drain()
	h.advance(100 * time.Millisecond)
	if len(h.p.calls) != 0 {
		t.Fatalf("equal-length replacement played: %s", h.p.trace())
	}

	h.o.DocumentChanged(editDoc, core.Change{RangeLength: 2, TextLength: 6})
	h.o.Drain()
	h.advance(100 * time.Millisecond)
	h.expectTrace("play add")
}

// TestEditVolume verifies plays use role volume times master volume
func TestEditVolume(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Volume = 80 })
	h.openDiffSettled()

	h.delete()
	h.advance(100 * time.Millisecond)

	if len(h.p.calls) != 1 {
		t.Fatalf("trace = %s", h.p.trace())
	}
	if got := h.p.calls[0].volume; got < 0.399 || got > 0.401 {
		t.Errorf("volume = %v, want 0.4", got)
	}
}

// TestEditsOutsideDiffIgnored verifies membership and attribution gating
func TestEditsOutsideDiffIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.insert() // No diff open
	h.advance(100 * time.Millisecond)
	if len(h.p.calls) != 0 {
		t.Fatalf("edit without diff played: %s", h.p.trace())
	}

	h.openDiffSettled()
	h.o.DocumentChanged("file:///repo/other.go", core.Change{TextLength: 1})
	h.o.Drain()
	h.advance(100 * time.Millisecond)
	if len(h.p.calls) != 0 {
		t.Fatalf("edit to unrelated document played: %s", h.p.trace())
	}
	if h.o.Status().Ints.Get(status.KeyEditsSkipped).Load() != 2 {
		t.Error("skipped edits not counted")
	}
}

// TestGitOnlyNeverPlays verifies attribution denial drops edits
func TestGitOnlyNeverPlays(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.AttributionMode = config.AttributionGitOnly })
	h.openDiffSettled()

	h.insert()
	h.advance(100 * time.Millisecond)
	if len(h.p.calls) != 0 {
		t.Errorf("git-only edit played: %s", h.p.trace())
	}
}

// TestRoleDisabledSkipsCue verifies a disabled add role stays quiet while remove plays
func TestRoleDisabledSkipsCue(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sounds[core.RoleAdd].Enabled = false })
	h.openDiffSettled()

	h.insert()
	h.delete()
	h.advance(100 * time.Millisecond)
	h.expectTrace("play remove")
}

// --- Config-churn axis ---

// TestSuppressionWindow verifies edits shortly after a config change are dropped
func TestSuppressionWindow(t *testing.T) {
	tests := []struct {
		delay time.Duration
		plays int
	}{
		{500 * time.Millisecond, 0},
		{1999 * time.Millisecond, 0},
		{2100 * time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.delay.String(), func(t *testing.T) {
			h := newHarness(t, nil)
			h.openDiffSettled()

			h.o.ConfigChanged(h.cfg.Clone())
			h.o.Drain()
			h.p.calls = nil

			h.advance(tt.delay)
			h.insert()
			h.advance(100 * time.Millisecond)

			if n := h.p.count("play", core.RoleAdd); n != tt.plays {
				t.Errorf("add plays = %d, want %d (%s)", n, tt.plays, h.p.trace())
			}
		})
	}
}

// TestSuppressionCheckedAtFireTime verifies a pending cue is dropped when a change lands before it fires
func TestSuppressionCheckedAtFireTime(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	h.insert()
	h.advance(10 * time.Millisecond)
	h.o.ConfigChanged(h.cfg.Clone())
	h.o.Drain()
	h.p.calls = nil

	h.advance(100 * time.Millisecond)
	if n := h.p.count("play", core.RoleAdd); n != 0 {
		t.Errorf("add played %d times despite suppression", n)
	}
}

// TestSuppressionSelfHeals verifies arrival-time gating without the cooldown timer firing
func TestSuppressionSelfHeals(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	base := h.clock.Now()
	h.o.HandleEvent(events.Event{Type: events.EventConfigChanged, Payload: &events.ConfigChangedPayload{Config: h.cfg.Clone()}, Timestamp: base})
	h.o.Drain()

	if !h.o.withinCooldown(base.Add(constant.ConfigChangeCooldown - time.Millisecond)) {
		t.Error("edit inside the window not suppressed")
	}
	if h.o.withinCooldown(base.Add(constant.ConfigChangeCooldown)) {
		t.Error("edit at the window edge suppressed")
	}
	if h.o.withinCooldown(base.Add(-time.Second)) {
		t.Error("edit from before the change suppressed")
	}
}

// TestTabsSilentWhileSuppressed verifies tabs are counted but silent during churn
func TestTabsSilentWhileSuppressed(t *testing.T) {
	h := newHarness(t, nil)
	h.o.ConfigChanged(h.cfg.Clone())
	h.o.Drain()
	h.p.calls = nil

	h.openDiff(diffTab)
	if len(h.p.calls) != 0 || h.o.tracker.Count() != 1 {
		t.Fatalf("suppressed open: trace=%s count=%d", h.p.trace(), h.o.tracker.Count())
	}

	h.advance(constant.ConfigChangeCooldown)
	h.closeDiff(diffTab)
	h.expectTrace("stop diffactive, play diffclose")
}

// TestConfigReloadResumesLoop verifies a config change reloads sounds and restarts the loop
func TestConfigReloadResumesLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	louder := h.cfg.Clone()
	louder.Volume = 60
	h.o.ConfigChanged(louder)
	h.o.Drain()

	h.expectTrace("stopall, loop diffactive")
	if got := h.p.calls[1].volume; got < 0.599 || got > 0.601 {
		t.Errorf("resumed loop volume = %v, want 0.6", got)
	}
	if h.o.Config().Volume != 60 {
		t.Error("snapshot not swapped")
	}
}

// --- Active-loop axis ---

// TestLifecycleOrdering verifies open cue, then loop after completion; then stop loop and close
func TestLifecycleOrdering(t *testing.T) {
	h := newHarness(t, nil)

	h.openDiff(diffTab)
	h.expectTrace("play diffopen")

	h.p.finish(core.RoleDiffOpen)
	h.o.Drain()
	h.expectTrace("play diffopen, loop diffactive")

	h.openDiff(diffTab2)
	h.closeDiff(diffTab2)
	h.expectTrace("play diffopen, loop diffactive")

	h.closeDiff(diffTab)
	h.expectTrace("play diffopen, loop diffactive, stop diffactive, play diffclose")
}

// TestOpenCueDisabledStartsLoop verifies the loop starts on the transition itself
func TestOpenCueDisabledStartsLoop(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sounds[core.RoleDiffOpen].Enabled = false })
	h.openDiff(diffTab)
	h.expectTrace("loop diffactive")
}

// TestMissingOpenCueStartsLoop verifies a failed open cue does not strand the loop
func TestMissingOpenCueStartsLoop(t *testing.T) {
	h := newHarness(t, nil)
	if err := os.Remove(filepath.Join(h.dir, "diffopen.wav")); err != nil {
		t.Fatal(err)
	}
	if err := h.command(events.EventReload); err != nil {
		t.Fatal(err)
	}
	h.p.calls = nil

	h.openDiff(diffTab)
	h.expectTrace("loop diffactive")
	if len(h.p.finished[core.RoleDiffOpen]) != 0 {
		t.Error("callback left queued for a cue that never played")
	}
}

// TestCloseDisabledLeavesLoop verifies the loop keeps running without a close cue
func TestCloseDisabledLeavesLoop(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sounds[core.RoleDiffClose].Enabled = false })
	h.openDiffSettled()

	h.closeDiff(diffTab)
	if len(h.p.calls) != 0 || !h.o.loopPlaying {
		t.Errorf("loop touched without close cue: %s", h.p.trace())
	}
}

// TestStaleOpenCompletionIgnored verifies a late open-cue completion never starts a loop
func TestStaleOpenCompletionIgnored(t *testing.T) {
	h := newHarness(t, nil)

	h.openDiff(diffTab)
	h.closeDiff(diffTab)
	h.p.finish(core.RoleDiffOpen)
	h.o.Drain()

	h.expectTrace("play diffopen, stop diffactive, play diffclose")
	if h.o.loopPlaying {
		t.Error("loop started after the diff closed")
	}
}

// TestActiveDisabledPlaysOpenOnly verifies the open cue still sounds when the loop is off
func TestActiveDisabledPlaysOpenOnly(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sounds[core.RoleDiffActive].Enabled = false })
	h.openDiff(diffTab)
	h.p.finish(core.RoleDiffOpen)
	h.o.Drain()
	h.expectTrace("play diffopen")
}

// --- Commands ---

// TestReloadCommandResumesLoop verifies reload stops everything and restarts the loop
func TestReloadCommandResumesLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiffSettled()

	if err := h.command(events.EventReload); err != nil {
		t.Fatal(err)
	}
	h.expectTrace("stopall, loop diffactive")
}

// TestReloadDuringOpenCueStartsLoop verifies a reload before the open cue ends still brings up the loop
func TestReloadDuringOpenCueStartsLoop(t *testing.T) {
	tests := []struct {
		name   string
		reload func(h *harness)
	}{
		{"config change", func(h *harness) {
			louder := h.cfg.Clone()
			louder.Volume = 60
			h.o.ConfigChanged(louder)
			h.o.Drain()
		}},
		{"reload command", func(h *harness) {
			if err := h.command(events.EventReload); err != nil {
				h.t.Fatal(err)
			}
		}},
		{"watcher reload", func(h *harness) {
			h.o.Submit(events.EventReload, nil)
			h.o.Drain()
		}},
		{"restore defaults", func(h *harness) {
			defaults := filepath.Join(h.dir, constant.DefaultsDirName)
			if err := os.WriteFile(filepath.Join(defaults, "diffopen.wav"), []byte("x"), 0o644); err != nil {
				h.t.Fatal(err)
			}
			if err := h.command(events.EventRestoreDefaults); err != nil {
				h.t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.openDiff(diffTab)
			h.expectTrace("play diffopen")

			tt.reload(h)
			h.expectTrace("play diffopen, stopall, loop diffactive")
			if !h.o.loopPlaying || h.o.loopDeferred {
				t.Fatalf("loopPlaying=%v loopDeferred=%v, want running loop", h.o.loopPlaying, h.o.loopDeferred)
			}
			if n := len(h.p.finished[core.RoleDiffOpen]); n != 0 {
				t.Errorf("%d open-cue callbacks left after reload", n)
			}

			// The cut-off open cue must not start a second loop
			h.p.finish(core.RoleDiffOpen)
			h.advance(3 * constant.ConfigChangeCooldown)
			if got := h.p.count("loop", core.RoleDiffActive); got != 1 {
				t.Errorf("loop started %d times, want 1; trace=%s", got, h.p.trace())
			}
		})
	}
}

// TestSilenceClearsOpenCallbacks verifies a cut-off open cue leaves nothing queued on its slot
func TestSilenceClearsOpenCallbacks(t *testing.T) {
	h := newHarness(t, nil)
	h.openDiff(diffTab)
	if n := len(h.p.finished[core.RoleDiffOpen]); n != 1 {
		t.Fatalf("%d callbacks after open, want 1", n)
	}

	if err := h.command(events.EventDisable); err != nil {
		t.Fatal(err)
	}
	if n := len(h.p.finished[core.RoleDiffOpen]); n != 0 {
		t.Errorf("%d callbacks left after disable, want 0", n)
	}
	if h.o.loopDeferred {
		t.Error("deferred loop survived disable")
	}
}

// TestReloadPicksUpNewFiles verifies resolution follows the directory between reloads
func TestReloadPicksUpNewFiles(t *testing.T) {
	h := newHarness(t, nil)
	if err := os.WriteFile(filepath.Join(h.dir, "insert.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(h.dir, "add.wav")); err != nil {
		t.Fatal(err)
	}
	if err := h.command(events.EventReload); err != nil {
		t.Fatal(err)
	}
	if got := h.o.Config().Sound(core.RoleAdd).File; got != "insert.mp3" {
		t.Errorf("add resolved to %q, want insert.mp3", got)
	}
	if got := h.o.Status().Strings.Get(status.SoundKey(core.RoleAdd)).Load(); got != "insert.mp3" {
		t.Errorf("status sound = %q", got)
	}
}

// TestNoSoundsStatus verifies the advisory message when nothing resolves
func TestNoSoundsStatus(t *testing.T) {
	h := newHarness(t, nil)
	for _, r := range core.Roles() {
		os.Remove(filepath.Join(h.dir, r.String()+".wav"))
	}
	if err := h.command(events.EventReload); err != nil {
		t.Fatal(err)
	}
	if msg := h.o.Status().Message(); msg != "no sound files detected" {
		t.Errorf("message = %q", msg)
	}

	h.p.calls = nil
	h.openDiff(diffTab)
	h.insert()
	h.advance(100 * time.Millisecond)
	if len(h.p.calls) != 0 {
		t.Errorf("unresolved roles played: %s", h.p.trace())
	}
	if h.o.Status().Ints.Get(status.KeyPlayErrors).Load() == 0 {
		t.Error("play errors not counted")
	}
}

// TestTestPlay verifies auditioning ignores diffs and rejects unknown roles
func TestTestPlay(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sounds[core.RoleDiffClose].Enabled = false })

	p := &events.TestPlayPayload{CommandPayload: *events.NewCommand(), Role: "diff-close"}
	h.o.Submit(events.EventTestPlay, p)
	h.o.Drain()
	if err := <-p.Reply; err != nil {
		t.Fatalf("test-play: %v", err)
	}
	h.expectTrace("play diffclose")

	bad := &events.TestPlayPayload{CommandPayload: *events.NewCommand(), Role: "bell"}
	h.o.Submit(events.EventTestPlay, bad)
	h.o.Drain()
	if err := <-bad.Reply; !errors.Is(err, audio.ErrUnknownRole) {
		t.Errorf("unknown role: got %v", err)
	}
}

// TestRestoreDefaults verifies failures propagate and success reloads
func TestRestoreDefaults(t *testing.T) {
	h := newHarness(t, nil)

	err := h.command(events.EventRestoreDefaults)
	if !errors.Is(err, catalog.ErrNoDefaults) {
		t.Fatalf("empty defaults: got %v, want ErrNoDefaults", err)
	}
	if !strings.Contains(h.o.Status().Message(), "restore defaults failed") {
		t.Errorf("failure not reported in status: %q", h.o.Status().Message())
	}

	defaults := filepath.Join(h.dir, constant.DefaultsDirName)
	if err := os.WriteFile(filepath.Join(defaults, "delete.ogg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.command(events.EventRestoreDefaults); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.dir, "delete.ogg")); err != nil {
		t.Error("default not copied into root")
	}
	if msg := h.o.Status().Message(); msg != "restored 1 default sounds" {
		t.Errorf("message = %q", msg)
	}
}

// --- Loop ---

type panicPlayer struct{ fakePlayer }

func (p *panicPlayer) Play(core.Role, float64, bool) error { panic("device gone") }

// TestHandlerPanicDoesNotKillLoop verifies a panicking cue leaves the loop serving
func TestHandlerPanicDoesNotKillLoop(t *testing.T) {
	q := events.NewEventQueue()
	p := &panicPlayer{fakePlayer{exec: q.Invoke}}
	o := New(config.Default(), Options{Queue: q, Player: p, Clock: NewMockClock(time.Now())})
	o.Start()
	o.Drain()

	o.TabsChanged([]core.Tab{diffTab}, nil)
	o.Drain()

	cmd := events.NewCommand()
	o.Submit(events.EventReload, cmd)
	o.Drain()
	if err := <-cmd.Reply; err != nil {
		t.Fatalf("reload after panic: %v", err)
	}
}

// TestRunServesBlockingCommands verifies Run answers commands and stops on cancel
func TestRunServesBlockingCommands(t *testing.T) {
	dir := t.TempDir()
	for _, r := range core.Roles() {
		os.WriteFile(filepath.Join(dir, fmt.Sprintf("%s.wav", r)), []byte("x"), 0o644)
	}
	cfg := config.Default()
	cfg.SoundsDir = dir

	q := events.NewEventQueue()
	p := &fakePlayer{exec: q.Invoke}
	o := New(cfg, Options{Queue: q, Player: p, Catalog: catalog.New(dir), Clock: NewMockClock(time.Now())})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	cmdCtx, cmdCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cmdCancel()
	if err := o.Reload(cmdCtx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := o.TestPlay(cmdCtx, core.RoleAdd); err != nil {
		t.Fatalf("TestPlay: %v", err)
	}
	if err := o.Disable(cmdCtx); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	if p.count("play", core.RoleAdd) != 1 {
		t.Errorf("trace = %s", p.trace())
	}
	if o.Status().Bools.Get(status.KeyEnabled).Load() {
		t.Error("status still enabled after Disable")
	}
}

// TestCommandTimesOutWithoutLoop verifies blocking commands honour ctx
func TestCommandTimesOutWithoutLoop(t *testing.T) {
	o := New(config.Default(), Options{Player: &fakePlayer{exec: func(func()) {}}, Clock: NewMockClock(time.Now())})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := o.Reload(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Reload without loop: got %v", err)
	}
}
